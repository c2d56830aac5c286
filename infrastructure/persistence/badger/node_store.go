package badger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// Key layout:
//
//	node/<id>             JSON nodeRecord
//	child/<parent>/<id>   empty; indexes children by parent
//	seq/nodes             insertion sequence
const (
	nodePrefix  = "node/"
	childPrefix = "child/"
	seqKey      = "seq/nodes"
)

// nodeRecord is the stored form of a node. Seq keeps insertion order, which
// breaks ties between siblings with equal order indexes.
type nodeRecord struct {
	ID         string  `json:"id"`
	ParentID   *string `json:"parent_id,omitempty"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	ColorID    string  `json:"color_id"`
	OrderIndex float64 `json:"order_index"`
	CreatedAt  string  `json:"created_at"`
	Seq        uint64  `json:"seq"`
}

// NodeStore keeps one namespace's nodes in Badger
type NodeStore[K valueobjects.Key] struct {
	db     *DB
	ns     valueobjects.Namespace[K]
	seq    *badger.Sequence
	nextID func() K
	logger *zap.Logger
}

// NewNodeStore creates a store on db issuing ids with nextID
func NewNodeStore[K valueobjects.Key](db *DB, ns valueobjects.Namespace[K], nextID func() K, logger *zap.Logger) (*NodeStore[K], error) {
	seq, err := db.GetSequence([]byte(seqKey), 128)
	if err != nil {
		return nil, fmt.Errorf("open node sequence: %w", err)
	}
	return &NodeStore[K]{db: db, ns: ns, seq: seq, nextID: nextID, logger: logger}, nil
}

// NewLocalNodeStore creates the on-device store, issuing random UUIDs
func NewLocalNodeStore(db *DB, ns valueobjects.Namespace[valueobjects.LocalID], logger *zap.Logger) (*NodeStore[valueobjects.LocalID], error) {
	return NewNodeStore(db, ns, valueobjects.NewLocalID, logger)
}

// Close releases the unused part of the reserved sequence range
func (s *NodeStore[K]) Close() error {
	return s.seq.Release()
}

func nodeKey(id string) []byte {
	return []byte(nodePrefix + id)
}

func childKey(parent, id string) []byte {
	return []byte(childPrefix + parent + "/" + id)
}

func (s *NodeStore[K]) toRecord(n entities.Node[K], seq uint64) nodeRecord {
	r := nodeRecord{
		ID:         n.ID().String(),
		Kind:       n.Kind().String(),
		Title:      n.Title(),
		Body:       n.Body(),
		ColorID:    string(n.ColorID()),
		OrderIndex: n.OrderIndex(),
		CreatedAt:  n.CreatedAt(),
		Seq:        seq,
	}
	if p, ok := n.ParentID(); ok {
		ps := p.String()
		r.ParentID = &ps
	}
	return r
}

func (s *NodeStore[K]) toNode(r nodeRecord) entities.Node[K] {
	attrs := entities.NodeAttributes[K]{
		ID:         K(r.ID),
		Kind:       valueobjects.Kind(r.Kind),
		Title:      r.Title,
		Body:       r.Body,
		ColorID:    valueobjects.ColorID(r.ColorID),
		OrderIndex: r.OrderIndex,
		CreatedAt:  r.CreatedAt,
	}
	if r.ParentID != nil {
		p := K(*r.ParentID)
		attrs.ParentID = &p
	}
	return entities.ReconstructNode(attrs)
}

// parentOf is the child index bucket of a record
func (s *NodeStore[K]) parentOf(r nodeRecord) string {
	if r.ParentID == nil || *r.ParentID == "" {
		return s.ns.Root().String()
	}
	return *r.ParentID
}

func getRecord(txn *badger.Txn, id string) (*nodeRecord, error) {
	item, err := txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r nodeRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &r, nil
}

func putRecord(txn *badger.Txn, r nodeRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", r.ID, err)
	}
	return txn.Set(nodeKey(r.ID), data)
}

func (s *NodeStore[K]) sorted(records []nodeRecord) []entities.Node[K] {
	slices.SortFunc(records, func(a, b nodeRecord) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	out := make([]entities.Node[K], 0, len(records))
	for _, r := range records {
		out = append(out, s.toNode(r))
	}
	return out
}

func (s *NodeStore[K]) ListChildren(ctx context.Context, parentID *K) ([]entities.Node[K], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parent := s.ns.Root()
	if parentID != nil {
		parent = *parentID
	}
	prefix := []byte(childPrefix + parent.String() + "/")

	var records []nodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			if id == s.ns.Root().String() {
				continue
			}
			ids = append(ids, id)
		}
		for _, id := range ids {
			r, err := getRecord(txn, id)
			if err != nil {
				return err
			}
			if r != nil {
				records = append(records, *r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", parent, err)
	}
	return s.sorted(records), nil
}

func (s *NodeStore[K]) ListAll(ctx context.Context) ([]entities.Node[K], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []nodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(nodePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r nodeRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return s.sorted(records), nil
}

func (s *NodeStore[K]) GetOne(ctx context.Context, id K) (*entities.Node[K], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *nodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id.String())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	if rec == nil {
		return nil, nil
	}
	n := s.toNode(*rec)
	return &n, nil
}

func (s *NodeStore[K]) Save(ctx context.Context, node entities.Node[K]) (entities.Node[K], error) {
	if err := ctx.Err(); err != nil {
		return node, err
	}
	node = node.WithoutChildren().WithProvenance("")

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getRecord(txn, node.ID().String())
		if err != nil {
			return err
		}

		var seq uint64
		if existing != nil {
			seq = existing.Seq
			if err := txn.Delete(childKey(s.parentOf(*existing), existing.ID)); err != nil {
				return err
			}
		} else if seq, err = s.seq.Next(); err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		r := s.toRecord(node, seq)
		if err := putRecord(txn, r); err != nil {
			return err
		}
		return txn.Set(childKey(s.parentOf(r), r.ID), []byte{})
	})
	if err != nil {
		return node, fmt.Errorf("save node %s: %w", node.ID(), err)
	}
	return node, nil
}

func (s *NodeStore[K]) Delete(ctx context.Context, id K) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getRecord(txn, id.String())
		if err != nil || existing == nil {
			return err
		}
		if err := txn.Delete(childKey(s.parentOf(*existing), existing.ID)); err != nil {
			return err
		}
		return txn.Delete(nodeKey(existing.ID))
	})
	if err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

func (s *NodeStore[K]) Move(ctx context.Context, nodeID, destinationGroupID K) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getRecord(txn, nodeID.String())
		if err != nil || existing == nil {
			return err
		}
		if err := txn.Delete(childKey(s.parentOf(*existing), existing.ID)); err != nil {
			return err
		}
		dest := destinationGroupID.String()
		existing.ParentID = &dest
		if err := putRecord(txn, *existing); err != nil {
			return err
		}
		return txn.Set(childKey(dest, existing.ID), []byte{})
	})
	if err != nil {
		return fmt.Errorf("move node %s: %w", nodeID, err)
	}
	s.logger.Debug("Moved node",
		zap.String("node_id", nodeID.String()),
		zap.String("destination_id", destinationGroupID.String()),
	)
	return nil
}

func (s *NodeStore[K]) NextID(ctx context.Context) (K, error) {
	if err := ctx.Err(); err != nil {
		var zero K
		return zero, err
	}
	return s.nextID(), nil
}
