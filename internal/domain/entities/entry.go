// Package entities contains the domain types for stored memories.
package entities

// Metadata is an arbitrary JSON-compatible mapping attached to an entry.
type Metadata = map[string]any

// Entry is a single unit of stored memory: free text plus optional metadata.
// Entries are immutable value objects; an edit is a full replace.
type Entry struct {
	Content  string
	Metadata Metadata
}

// Point is the persisted representation of an Entry in a vector store.
type Point struct {
	ID       string
	Content  string
	Metadata Metadata
	Vector   []float32
}

// Entry returns the caller-level view of the point.
func (p Point) Entry() Entry {
	return Entry{
		Content:  p.Content,
		Metadata: p.Metadata,
	}
}

// ListedEntry pairs an entry with its point identifier, as returned by List.
type ListedEntry struct {
	ID    string
	Entry Entry
}
