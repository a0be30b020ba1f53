// Package buffer implements the size-bucketed buffer pool (C6): reuse of
// same-shaped allocations across a compiled program's lifetime, aged out
// after a period of disuse. Grounded on TensorFrost's BufferManager:
// buffers are kept in a size-ordered bucket map, a pending-delete set
// separates "aged out" from "actually freed", and the pool runs
// single-threaded, matching the IR's own synchronous execution model —
// no mutex guards Pool.
package buffer

import (
	"fmt"
	"sort"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
)

// MaxUnusedTicks is the number of UpdateTick calls a released buffer may
// sit idle before it becomes eligible for removal.
const MaxUnusedTicks = 512

// Handle identifies one allocation the pool owns. The zero Handle is never
// valid; Handles are only produced by TryAllocate.
type Handle struct {
	id   uint64
	Size uint64
}

// Buffer is the pool's view of one allocation: its size bucket and
// lifecycle flags. Backends attach their own resource (a device pointer,
// a host slice) alongside a Handle; the pool itself is resource-agnostic.
type Buffer struct {
	Handle   Handle
	Size     uint64
	ReadOnly bool
	// Resource holds whatever a caller's create func attaches to a fresh
	// buffer (e.g. a backend.Buffer). The pool never inspects it.
	Resource any
}

// Pool is the size-bucketed buffer pool. The zero value is not usable;
// construct with New.
type Pool struct {
	nextID uint64

	bySize map[uint64][]*Buffer // size -> buffers of that exact size, insertion order
	used   map[uint64]struct{}  // handle id -> leased
	idle   map[uint64]int       // handle id -> ticks since Deallocate
	delete map[uint64]struct{}  // handle id -> aged past MaxUnusedTicks, pending Remove
	byID   map[uint64]*Buffer
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{
		bySize: make(map[uint64][]*Buffer),
		used:   make(map[uint64]struct{}),
		idle:   make(map[uint64]int),
		delete: make(map[uint64]struct{}),
		byID:   make(map[uint64]*Buffer),
	}
}

// TryAllocate returns a buffer of at least size bytes, reusing an idle
// buffer whose size is within [size, 8*size] in preference to allocating
// a new one, the same factor-of-8 ceiling TensorFrost's
// TryAllocateBuffer uses to bound internal fragmentation. create is
// called only when no eligible buffer is idle; it must return a *Buffer
// of exactly the requested size.
func (p *Pool) TryAllocate(size uint64, create func(size uint64) *Buffer) (*Buffer, error) {
	if size == 0 {
		return nil, newError("TryAllocate", "requested size is zero", ErrZeroSize)
	}

	if buf := p.findReusable(size); buf != nil {
		p.lease(buf)
		tflog.Log.Debug().Uint64("handle", buf.Handle.id).Uint64("size", size).Msg("buffer pool reused idle buffer")
		return buf, nil
	}

	buf := create(size)
	buf.Handle = Handle{id: p.nextID, Size: size}
	buf.Size = size
	p.nextID++
	p.bySize[size] = append(p.bySize[size], buf)
	p.byID[buf.Handle.id] = buf
	p.lease(buf)
	tflog.Log.Debug().Uint64("handle", buf.Handle.id).Uint64("size", size).Msg("buffer pool allocated new buffer")
	return buf, nil
}

// findReusable scans size buckets from the smallest at-least-size bucket
// up to the 8x ceiling, returning the first idle (not leased, not pending
// delete) buffer it finds.
func (p *Pool) findReusable(size uint64) *Buffer {
	maxSize := 8 * size

	sizes := make([]uint64, 0, len(p.bySize))
	for s := range p.bySize {
		if s >= size && s <= maxSize {
			sizes = append(sizes, s)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	for _, s := range sizes {
		for _, buf := range p.bySize[s] {
			if p.isIdle(buf) {
				return buf
			}
		}
	}
	return nil
}

func (p *Pool) isIdle(buf *Buffer) bool {
	if _, leased := p.used[buf.Handle.id]; leased {
		return false
	}
	if _, pending := p.delete[buf.Handle.id]; pending {
		return false
	}
	return true
}

func (p *Pool) lease(buf *Buffer) {
	p.used[buf.Handle.id] = struct{}{}
	delete(p.idle, buf.Handle.id)
	delete(p.delete, buf.Handle.id)
}

// Deallocate releases buf back to the pool without freeing it: it becomes
// idle and eligible for reuse or, after MaxUnusedTicks of disuse, removal.
func (p *Pool) Deallocate(buf *Buffer) {
	delete(p.used, buf.Handle.id)
	p.idle[buf.Handle.id] = 0
	tflog.Log.Debug().Uint64("handle", buf.Handle.id).Msg("buffer pool released buffer to idle")
}

// UpdateTick ages every idle buffer by one tick, marking any that crossed
// MaxUnusedTicks as pending deletion. Leased buffers are never aged:
// "leased implies never pending" is an invariant Remove relies on.
func (p *Pool) UpdateTick() {
	for id, ticks := range p.idle {
		if ticks >= MaxUnusedTicks {
			p.delete[id] = struct{}{}
			tflog.Log.Debug().Uint64("handle", id).Msg("buffer pool marked buffer for eviction")
			continue
		}
		p.idle[id] = ticks + 1
	}
}

// Remove frees buf, failing with ErrBufferNotMarkedForDeletion unless
// UpdateTick has already aged it past MaxUnusedTicks.
func (p *Pool) Remove(buf *Buffer) error {
	id := buf.Handle.id
	if _, ok := p.delete[id]; !ok {
		return newError("Remove", fmt.Sprintf("buffer %d is not marked for deletion", id), ErrBufferNotMarkedForDeletion)
	}
	bucket := p.bySize[buf.Size]
	for i, b := range bucket {
		if b.Handle.id == id {
			p.bySize[buf.Size] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(p.idle, id)
	delete(p.delete, id)
	delete(p.byID, id)
	tflog.Log.Debug().Uint64("handle", id).Msg("buffer pool evicted buffer")
	return nil
}

// ReclaimAged calls free for every buffer currently pending deletion
// (aged past MaxUnusedTicks by UpdateTick) and removes it from the pool.
// Stops at the first error free returns, leaving remaining buffers
// pending for the next call.
func (p *Pool) ReclaimAged(free func(*Buffer) error) error {
	ids := make([]uint64, 0, len(p.delete))
	for id := range p.delete {
		ids = append(ids, id)
	}
	for _, id := range ids {
		buf := p.byID[id]
		if buf == nil {
			continue
		}
		if err := free(buf); err != nil {
			return err
		}
		if err := p.Remove(buf); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarises the pool's current allocation, for diagnostics and
// tests.
type Stats struct {
	AllocatedBytes uint64
	UnusedBytes    uint64
	BufferCount    int
}

// Stats computes the pool's current allocation summary by scanning every
// tracked buffer.
func (p *Pool) Stats() Stats {
	var s Stats
	for _, buf := range p.byID {
		s.AllocatedBytes += buf.Size
		s.BufferCount++
		if _, leased := p.used[buf.Handle.id]; !leased {
			s.UnusedBytes += buf.Size
		}
	}
	return s
}
