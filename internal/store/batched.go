package store

import "sync"

// Batch buffers one file's worth of graph writes in memory so parallel
// analysis workers never touch SQLite directly. A Batch is committed
// atomically by CommitBatch — no partial file states are observable.
//
// Thread safety: the mutex protects slice appends; a Batch may be
// filled from the worker goroutine and read by the committer after the
// worker is done.
type Batch struct {
	mu sync.Mutex

	Nodes    []Node
	Edges    []Edge
	Bindings []NamespaceBinding
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// AddNode buffers a node upsert.
func (b *Batch) AddNode(n Node) {
	b.mu.Lock()
	b.Nodes = append(b.Nodes, n)
	b.mu.Unlock()
}

// AddEdge buffers an edge upsert.
func (b *Batch) AddEdge(e Edge) {
	b.mu.Lock()
	b.Edges = append(b.Edges, e)
	b.mu.Unlock()
}

// AddBinding buffers a namespace membership row.
func (b *Batch) AddBinding(binding NamespaceBinding) {
	b.mu.Lock()
	b.Bindings = append(b.Bindings, binding)
	b.mu.Unlock()
}

// Len reports how many writes the batch holds.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Nodes) + len(b.Edges) + len(b.Bindings)
}
