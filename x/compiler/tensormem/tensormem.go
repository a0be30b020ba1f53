// Package tensormem implements the tensor memory manager (C7): logical
// tensors backed by pooled buffers, delegating actual storage to a
// pluggable backend.Backend. Grounded on TensorFrost's
// TensorMemoryManager, which layers Allocate/Free/Readback/Writeback over
// a BufferManager and a virtual device interface the same way Manager
// layers them over buffer.Pool and backend.Backend here.
package tensormem

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compiler/backend"
	"github.com/tensorfrost-go/tfcore/x/compiler/buffer"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
)

// Tensor is a logical tensor: a typed, shaped view over a pooled buffer.
// It is the runtime counterpart of an ir.Tensor, materialised once a
// compiled program actually executes.
type Tensor struct {
	buf   *buffer.Buffer
	Type  dtype.Type
	Shape []uint64
}

// Dim returns the tensor's rank.
func (t *Tensor) Dim() int { return len(t.Shape) }

// Size returns the tensor's element count (the product of Shape).
func (t *Tensor) Size() uint64 { return LinearSize(t.Shape) }

// LinearSize returns the total element count of shape, TensorFrost's
// GetLinearSize.
func LinearSize(shape []uint64) uint64 {
	size := uint64(1)
	for _, d := range shape {
		size *= d
	}
	return size
}

// Manager allocates, frees and transfers data for logical tensors,
// pooling their backing buffers through buffer.Pool and delegating
// storage and transfer to a backend.Backend.
type Manager struct {
	backend backend.Backend
	pool    *buffer.Pool
}

// New returns a Manager whose buffers are created and freed through be.
func New(be backend.Backend) *Manager {
	return &Manager{backend: be, pool: buffer.New()}
}

// Allocate reserves a tensor of the given shape and type, reusing a
// pooled buffer when one of a compatible size is idle.
func (m *Manager) Allocate(shape []uint64, dt dtype.Type) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, newError("Allocate", "shape has no dimensions", ErrShapeEmpty)
	}
	size := LinearSize(shape)

	buf, err := m.pool.TryAllocate(size, func(sz uint64) *buffer.Buffer {
		pb := &buffer.Buffer{}
		res, cerr := m.backend.CreateBuffer(sz)
		if cerr != nil {
			// Surface the failure through Resource; Allocate checks it
			// immediately below since TryAllocate's create func cannot
			// itself return an error.
			pb.Resource = cerr
			return pb
		}
		pb.Resource = res
		return pb
	})
	if err != nil {
		return nil, err
	}
	if cerr, failed := buf.Resource.(error); failed {
		return nil, newError("Allocate", "backend failed to create buffer", cerr)
	}

	tflog.Log.Debug().Uint64("size", size).Msg("tensor memory manager allocated tensor")
	return &Tensor{buf: buf, Type: dt, Shape: shape}, nil
}

// AllocateWithData allocates a tensor and immediately writes data into its
// buffer via Writeback.
func (m *Manager) AllocateWithData(shape []uint64, data []uint32, dt dtype.Type) (*Tensor, error) {
	t, err := m.Allocate(shape, dt)
	if err != nil {
		return nil, err
	}
	if err := m.Writeback(t, data); err != nil {
		return nil, err
	}
	return t, nil
}

// Free returns t's buffer to the pool. The buffer is not necessarily
// released to the backend immediately; it becomes idle and eligible for
// reuse or eventual removal via UpdateTick/Reclaim.
func (m *Manager) Free(t *Tensor) {
	m.pool.Deallocate(t.buf)
}

// UpdateTick ages every idle buffer by one tick, the same bookkeeping
// buffer.Pool.UpdateTick performs; call once per compiled-program
// invocation.
func (m *Manager) UpdateTick() {
	m.pool.UpdateTick()
}

// Reclaim frees every buffer UpdateTick has aged past
// buffer.MaxUnusedTicks back to the backend.
func (m *Manager) Reclaim() error {
	return m.pool.ReclaimAged(func(b *buffer.Buffer) error {
		res, ok := b.Resource.(backend.Buffer)
		if !ok {
			return nil
		}
		return m.backend.DeleteBuffer(res)
	})
}

func (t *Tensor) resource() (backend.Buffer, error) {
	res, ok := t.buf.Resource.(backend.Buffer)
	if !ok {
		return nil, newError("resource", "tensor has no backend resource", nil)
	}
	return res, nil
}

// Readback copies the tensor's full contents to the host.
func (m *Manager) Readback(t *Tensor) ([]uint32, error) {
	res, err := t.resource()
	if err != nil {
		return nil, err
	}
	return m.backend.Readback(res, t.Type, t.Size())
}

// ReadbackValue reads a single element at index.
func (m *Manager) ReadbackValue(t *Tensor, index uint64) (uint32, error) {
	res, err := t.resource()
	if err != nil {
		return 0, err
	}
	return m.backend.ReadbackValue(res, t.Type, index)
}

// Writeback copies data from the host into the tensor's buffer.
func (m *Manager) Writeback(t *Tensor, data []uint32) error {
	res, err := t.resource()
	if err != nil {
		return err
	}
	return m.backend.Writeback(res, t.Type, data)
}

// WritebackValue writes a single element at index.
func (m *Manager) WritebackValue(t *Tensor, index uint64, value uint32) error {
	res, err := t.resource()
	if err != nil {
		return err
	}
	return m.backend.WritebackValue(res, t.Type, index, value)
}
