package valueobjects

// ColorID references an entry of the fixed palette
type ColorID string

// Color is a palette entry
type Color struct {
	ID   ColorID `json:"id"`
	Name string  `json:"name"`
	Hex  string  `json:"hex"`
}

// DefaultColorID is used when a new node does not pick a color
const DefaultColorID ColorID = "slate"

var palette = []Color{
	{ID: "slate", Name: "Slate", Hex: "#64748B"},
	{ID: "red", Name: "Red", Hex: "#EF4444"},
	{ID: "orange", Name: "Orange", Hex: "#F97316"},
	{ID: "yellow", Name: "Yellow", Hex: "#EAB308"},
	{ID: "green", Name: "Green", Hex: "#22C55E"},
	{ID: "teal", Name: "Teal", Hex: "#14B8A6"},
	{ID: "blue", Name: "Blue", Hex: "#3B82F6"},
	{ID: "purple", Name: "Purple", Hex: "#A855F7"},
}

// LookupColor resolves a color id in the palette
func LookupColor(id ColorID) (Color, bool) {
	for _, c := range palette {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}

// Palette returns a copy of the fixed palette
func Palette() []Color {
	out := make([]Color, len(palette))
	copy(out, palette)
	return out
}
