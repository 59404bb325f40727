package reconciler

import (
	"github.com/crmarques/liveops/internal/payload"
	"github.com/crmarques/liveops/resource"
)

// Comparer decides correspondence and equality of entries. Zero fields fall
// back to Entry.Key and normalized deep equality.
type Comparer struct {
	Key   func(resource.Entry) string
	Equal func(left resource.Value, right resource.Value) bool
}

func DefaultComparer() Comparer {
	return Comparer{
		Key:   entryKey,
		Equal: payload.Equal,
	}
}

func (c Comparer) withDefaults() Comparer {
	if c.Key == nil {
		c.Key = entryKey
	}
	if c.Equal == nil {
		c.Equal = payload.Equal
	}
	return c
}

func entryKey(entry resource.Entry) string {
	return entry.Key
}

// Plan is the classification produced by Diff. Create, Update and Unchanged
// keep the order of the source side; Delete keeps the order of the target side.
type Plan struct {
	Create    []resource.Entry
	Update    []resource.Entry
	Delete    []resource.Entry
	Unchanged []resource.Entry

	// Counterparts maps the key of every Update and Unchanged entry to the
	// matching target-side entry.
	Counterparts map[string]resource.Entry
}

func (p Plan) Writes() int {
	return len(p.Create) + len(p.Update) + len(p.Delete)
}

func (p Plan) HasChanges() bool {
	return p.Writes() > 0
}

func (p Plan) Counterpart(key string) (resource.Entry, bool) {
	entry, found := p.Counterparts[key]
	return entry, found
}
