package volume

import "sync"

// Location identifies where a voxel buffer lives.
type Location int

const (
	// Host buffers are ordinary heap allocations released to the garbage
	// collector.
	Host Location = iota

	// Pooled buffers are recycled through size-bucketed free lists so that
	// repeated rebuilds of equally sized volumes do not reallocate.
	Pooled
)

// String returns the location name
func (l Location) String() string {
	switch l {
	case Host:
		return "host"
	case Pooled:
		return "pooled"
	default:
		return "unknown"
	}
}

// Storage allocates, releases and fills voxel buffers for one location.
// A Volume talks to its buffer only through this interface, so the
// ownership rules are the same regardless of where the samples live.
type Storage interface {
	Location() Location

	// Allocate returns a zeroed buffer of n voxels, or nil when n <= 0.
	Allocate(n int) []uint16

	// Free returns buf to the storage. buf must not be used afterwards.
	Free(buf []uint16)

	// Copy copies min(len(dst), len(src)) voxels and returns the count.
	Copy(dst, src []uint16) int
}

// HostStorage keeps voxels in plain heap memory
type HostStorage struct{}

func (HostStorage) Location() Location { return Host }

func (HostStorage) Allocate(n int) []uint16 {
	if n <= 0 {
		return nil
	}
	return make([]uint16, n)
}

func (HostStorage) Free(buf []uint16) {}

func (HostStorage) Copy(dst, src []uint16) int { return copy(dst, src) }

// PooledStorage recycles buffers by exact length. It is safe for use by
// several volumes at once.
type PooledStorage struct {
	mu   sync.Mutex
	free map[int][][]uint16

	// MaxPerSize bounds how many idle buffers are kept per length.
	// Zero means 4.
	MaxPerSize int
}

// NewPooledStorage creates an empty buffer pool
func NewPooledStorage() *PooledStorage {
	return &PooledStorage{free: make(map[int][][]uint16)}
}

func (p *PooledStorage) Location() Location { return Pooled }

func (p *PooledStorage) Allocate(n int) []uint16 {
	if n <= 0 {
		return nil
	}

	p.mu.Lock()
	bucket := p.free[n]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.free[n] = bucket[:len(bucket)-1]
		p.mu.Unlock()

		clear(buf)
		return buf
	}
	p.mu.Unlock()

	return make([]uint16, n)
}

func (p *PooledStorage) Free(buf []uint16) {
	if len(buf) == 0 {
		return
	}

	limit := p.MaxPerSize
	if limit <= 0 {
		limit = 4
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free == nil {
		p.free = make(map[int][][]uint16)
	}
	n := len(buf)
	if len(p.free[n]) < limit {
		p.free[n] = append(p.free[n], buf[:n:n])
	}
}

func (p *PooledStorage) Copy(dst, src []uint16) int { return copy(dst, src) }

// Idle reports how many released buffers of length n are waiting for reuse
func (p *PooledStorage) Idle(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[n])
}
