package playlist

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-memdb"
)

const channelTable = "channels"

// Index accumulates parsed records from many sources into one channel set,
// backed by an in-memory database keyed by the channel key. Parses may run
// in parallel; every merge goes through a single-writer lock so unioning
// into the shared table is race-free and order-independent.
type Index struct {
	mu sync.Mutex
	db *memdb.MemDB
}

func NewIndex() (*Index, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			channelTable: {
				Name: channelTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("create merge index: %w", err)
	}

	return &Index{db: db}, nil
}

// Add merges incoming records into the index. Candidate URL sets are
// unioned; attributes follow first-writer-wins semantics. Records without
// candidate URLs are never stored.
func (ix *Index) Add(records ...*Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	txn := ix.db.Txn(true)
	defer txn.Abort()

	for _, rec := range records {
		if rec == nil || rec.Key == "" || len(rec.URLs) == 0 {
			continue
		}

		raw, err := txn.First(channelTable, "id", rec.Key)
		if err != nil {
			return fmt.Errorf("lookup channel %q: %w", rec.Key, err)
		}

		var merged *Record
		if raw == nil {
			merged = rec.Clone()
		} else {
			merged = raw.(*Record).Clone()
			for k, v := range rec.Attrs {
				merged.SetIfMissing(k, v)
			}
			for _, u := range rec.URLs {
				merged.AddURL(u)
			}
		}

		if err := txn.Insert(channelTable, merged); err != nil {
			return fmt.Errorf("store channel %q: %w", rec.Key, err)
		}
	}

	txn.Commit()
	return nil
}

// Len returns the number of distinct channel keys stored so far.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	count := 0
	txn := ix.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(channelTable, "id")
	if err != nil {
		return 0
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		count++
	}
	return count
}

// Snapshot returns cloned records sorted by channel key, so downstream
// stages see a stable order regardless of merge interleaving.
func (ix *Index) Snapshot() []*Record {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	txn := ix.db.Txn(false)
	defer txn.Abort()

	var out []*Record
	it, err := txn.Get(channelTable, "id")
	if err != nil {
		return nil
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(*Record).Clone())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
