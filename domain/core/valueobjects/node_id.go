package valueobjects

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// LocalID identifies a node stored on the device. Real nodes use UUIDs;
// the namespace root uses a configured sentinel.
type LocalID string

// RemoteID identifies a node stored by the remote service. Remote ids are
// unsigned decimal integers assigned by the server; the root is "0" by default.
type RemoteID string

// Key is the set of node identifier types. Local and remote ids are distinct
// types, so a Node[LocalID] can never be compared against a Node[RemoteID].
type Key interface {
	LocalID | RemoteID

	String() string
	Provenance() Provenance
	IsZero() bool
	wellFormed() bool
}

// NewLocalID creates a new random LocalID
func NewLocalID() LocalID {
	return LocalID(uuid.New().String())
}

// NewLocalIDFromString creates a LocalID from an existing string
func NewLocalIDFromString(id string) (LocalID, error) {
	if id == "" {
		return "", errors.New("local ID cannot be empty")
	}
	lid := LocalID(id)
	if !lid.wellFormed() {
		return "", errors.New("local ID must be a valid UUID")
	}
	return lid, nil
}

func (id LocalID) String() string         { return string(id) }
func (id LocalID) Provenance() Provenance { return ProvenanceLocal }
func (id LocalID) IsZero() bool           { return id == "" }

func (id LocalID) wellFormed() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// NewRemoteID creates a RemoteID from a server-assigned sequence number
func NewRemoteID(seq uint64) RemoteID {
	return RemoteID(strconv.FormatUint(seq, 10))
}

// NewRemoteIDFromString creates a RemoteID from an existing string
func NewRemoteIDFromString(id string) (RemoteID, error) {
	if id == "" {
		return "", errors.New("remote ID cannot be empty")
	}
	rid := RemoteID(id)
	if !rid.wellFormed() {
		return "", errors.New("remote ID must be an unsigned decimal integer")
	}
	return rid, nil
}

func (id RemoteID) String() string         { return string(id) }
func (id RemoteID) Provenance() Provenance { return ProvenanceRemote }
func (id RemoteID) IsZero() bool           { return id == "" }

// Seq returns the numeric value of the id
func (id RemoteID) Seq() (uint64, error) {
	return strconv.ParseUint(string(id), 10, 64)
}

// wellFormed accepts only the canonical decimal form, so "007" and "+7" are rejected.
func (id RemoteID) wellFormed() bool {
	n, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return false
	}
	return strconv.FormatUint(n, 10) == string(id)
}
