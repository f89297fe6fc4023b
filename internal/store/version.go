package store

import "sync/atomic"

// versionCounter is the monotonically increasing store version. Any
// mutation bumps it; inference caches key on the value. The counter is
// per-process — the store is opened by a single process at a time, and
// caches are per-process too, so persistence is unnecessary.
type versionCounter struct {
	v atomic.Uint64
}

func (c *versionCounter) bump() uint64 {
	return c.v.Add(1)
}

func (c *versionCounter) current() uint64 {
	return c.v.Load()
}

// Version returns the current store version. After any mutating call
// returns, subsequent reads observe a version at least as large as the
// one that mutation produced.
func (s *Store) Version() uint64 {
	return s.version.current()
}
