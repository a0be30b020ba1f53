// Package refbackend is a host-memory backend.Backend implementation for
// tests. Its buffers are plain []uint32 word slices; ToDense and FromDense
// convert those words to and from gorgonia.org/tensor.Dense. It does not
// use gorgonia.org/gorgonia's expression engine: the compiler computes its
// own autodiff and scheduling.
package refbackend

import (
	"errors"
	"fmt"
	"math"

	"github.com/tensorfrost-go/tfcore/x/compiler/backend"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"gorgonia.org/tensor"
)

// ErrDispatchNotImplemented is returned by Dispatch: refbackend only
// implements the memory-management surface of backend.Backend, not
// kernel execution.
var ErrDispatchNotImplemented = errors.New("refbackend: kernel dispatch not implemented")

// buf is refbackend's concrete backend.Buffer: a flat slice of 32-bit
// words, the bit-level representation every dtype round-trips through.
type buf struct {
	data []uint32
}

func (b *buf) Size() uint64 { return uint64(len(b.data)) }

// Backend is a host-memory backend.Backend. The zero value is ready to
// use.
type Backend struct{}

// New returns a ready-to-use host-memory backend.
func New() *Backend { return &Backend{} }

var _ backend.Backend = (*Backend)(nil)

// CreateBuffer allocates a zeroed word buffer of the given size.
func (b *Backend) CreateBuffer(size uint64) (backend.Buffer, error) {
	return &buf{data: make([]uint32, size)}, nil
}

// DeleteBuffer is a no-op: Go's garbage collector reclaims the backing
// slice once the last reference drops, the deviation from TFRuntime's
// explicit dealloc_func this repo's single-threaded, GC-backed IR design
// deliberately accepts.
func (b *Backend) DeleteBuffer(backend.Buffer) error { return nil }

func asBuf(bb backend.Buffer) (*buf, error) {
	b, ok := bb.(*buf)
	if !ok {
		return nil, fmt.Errorf("refbackend: foreign buffer handle")
	}
	return b, nil
}

// SetDataAtOffset writes data into bb starting at offset words.
func (b *Backend) SetDataAtOffset(bb backend.Buffer, offset uint64, data []uint32) error {
	target, err := asBuf(bb)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > uint64(len(target.data)) {
		return fmt.Errorf("refbackend: write out of bounds")
	}
	copy(target.data[offset:], data)
	return nil
}

// Readback copies the full buffer to the host as a fresh slice.
func (b *Backend) Readback(bb backend.Buffer, dt dtype.Type, elemCount uint64) ([]uint32, error) {
	target, err := asBuf(bb)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, elemCount)
	copy(out, target.data)
	return out, nil
}

// ReadbackValue reads a single word at index.
func (b *Backend) ReadbackValue(bb backend.Buffer, dt dtype.Type, index uint64) (uint32, error) {
	target, err := asBuf(bb)
	if err != nil {
		return 0, err
	}
	if index >= uint64(len(target.data)) {
		return 0, fmt.Errorf("refbackend: read out of bounds")
	}
	return target.data[index], nil
}

// Writeback overwrites the buffer's full contents.
func (b *Backend) Writeback(bb backend.Buffer, dt dtype.Type, data []uint32) error {
	target, err := asBuf(bb)
	if err != nil {
		return err
	}
	copy(target.data, data)
	return nil
}

// WritebackValue writes a single word at index.
func (b *Backend) WritebackValue(bb backend.Buffer, dt dtype.Type, index uint64, value uint32) error {
	target, err := asBuf(bb)
	if err != nil {
		return err
	}
	if index >= uint64(len(target.data)) {
		return fmt.Errorf("refbackend: write out of bounds")
	}
	target.data[index] = value
	return nil
}

// Dispatch is unimplemented: refbackend exists to exercise the memory
// manager and buffer pool under test, not to execute compiled kernels.
func (b *Backend) Dispatch(info backend.DispatchInfo) error {
	return ErrDispatchNotImplemented
}

// ToDense decodes a buffer's words into a gorgonia.org/tensor.Dense of the
// given shape, interpreting each word per dt. Tests use it to inspect a
// tensor with the wider tensor package's printing and
// numeric helpers instead of raw uint32 words.
func ToDense(words []uint32, dt dtype.Type, shape []int) (*tensor.Dense, error) {
	switch dt {
	case dtype.Float:
		data := make([]float32, len(words))
		for i, w := range words {
			data[i] = math.Float32frombits(w)
		}
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
	case dtype.Int:
		data := make([]int32, len(words))
		for i, w := range words {
			data[i] = int32(w)
		}
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
	case dtype.Uint:
		data := make([]uint32, len(words))
		copy(data, words)
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
	case dtype.Bool:
		data := make([]bool, len(words))
		for i, w := range words {
			data[i] = w != 0
		}
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
	default:
		return nil, fmt.Errorf("refbackend: unsupported dtype %s", dt)
	}
}

// FromDense encodes a gorgonia.org/tensor.Dense's data as 32-bit words,
// the inverse of ToDense, used to seed a tensor via
// tensormem.Manager.AllocateWithData.
func FromDense(d *tensor.Dense) ([]uint32, error) {
	switch data := d.Data().(type) {
	case []float32:
		out := make([]uint32, len(data))
		for i, v := range data {
			out[i] = math.Float32bits(v)
		}
		return out, nil
	case []int32:
		out := make([]uint32, len(data))
		for i, v := range data {
			out[i] = uint32(v)
		}
		return out, nil
	case []uint32:
		out := make([]uint32, len(data))
		copy(out, data)
		return out, nil
	case []bool:
		out := make([]uint32, len(data))
		for i, v := range data {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("refbackend: unsupported dense backing type %T", data)
	}
}
