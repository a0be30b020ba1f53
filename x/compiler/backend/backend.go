// Package backend defines the external contract a compiled program's
// runtime target must satisfy (spec.md §6): buffer creation, host/device
// data transfer, and kernel dispatch. It is grounded on TensorFrost's
// TFRuntime/TensorMemoryManager split — the compiler core depends only on
// this interface, never on a concrete device, the same seam the original
// draws between TensorMemoryManager and its virtual Create/Readback/
// Writeback methods.
package backend

import "github.com/tensorfrost-go/tfcore/x/compiler/dtype"

// Buffer is an opaque handle to a backend-owned allocation. Backends may
// embed arbitrary state behind it (a device pointer, a host slice); the
// compiler core never inspects it beyond passing it back to the same
// Backend that produced it.
type Buffer interface {
	// Size returns the buffer's length in 32-bit words.
	Size() uint64
}

// Backend is the capability surface a compiled program's runtime target
// implements. Every method here is a TFRuntime/TensorMemoryManager
// virtual in the original: backends compose with tensormem.Manager rather
// than implementing buffer pooling themselves.
type Backend interface {
	// CreateBuffer allocates a new buffer of size 32-bit words.
	CreateBuffer(size uint64) (Buffer, error)
	// DeleteBuffer releases a buffer CreateBuffer returned. Called only
	// once a buffer's pool entry has aged out (see package buffer).
	DeleteBuffer(buf Buffer) error
	// SetDataAtOffset writes data into buf starting at the given 32-bit
	// word offset, without requiring a full Writeback.
	SetDataAtOffset(buf Buffer, offset uint64, data []uint32) error
	// Readback copies the full contents of a tensor's buffer to the host.
	Readback(buf Buffer, dt dtype.Type, elemCount uint64) ([]uint32, error)
	// ReadbackValue reads a single element at index.
	ReadbackValue(buf Buffer, dt dtype.Type, index uint64) (uint32, error)
	// Writeback copies data from the host into a tensor's buffer.
	Writeback(buf Buffer, dt dtype.Type, data []uint32) error
	// WritebackValue writes a single element at index.
	WritebackValue(buf Buffer, dt dtype.Type, index uint64, value uint32) error
}

// DispatchInfo describes one kernel launch: which buffers it reads and
// writes, its scalar variables, and the requested work-group count. It
// mirrors TFDispatchInfo.
type DispatchInfo struct {
	KernelID       uint64
	ReadWrite      []Buffer
	ReadOnly       []Buffer
	Variables      []uint32
	WorkGroupCount uint64
}

// Dispatcher is implemented by backends capable of launching compiled
// kernels, separate from Backend's memory-management surface so a
// memory-only backend (e.g. one driving only host buffers for testing)
// can omit it.
type Dispatcher interface {
	Dispatch(info DispatchInfo) error
}

// Runtime bundles a Backend with its optional Dispatcher, the Go analogue
// of TFRuntime's function-pointer table.
type Runtime struct {
	Backend    Backend
	Dispatcher Dispatcher
}
