package buffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuf(size uint64) *Buffer { return &Buffer{Size: size} }

func TestTryAllocate_RejectsZeroSize(t *testing.T) {
	p := New()
	_, err := p.TryAllocate(0, newBuf)
	assert.True(t, errors.Is(err, ErrZeroSize))
}

func TestTryAllocate_CreatesWhenPoolEmpty(t *testing.T) {
	p := New()
	created := 0
	buf, err := p.TryAllocate(1024, func(size uint64) *Buffer {
		created++
		return newBuf(size)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), buf.Size)
	assert.Equal(t, 1, created)
}

func TestTryAllocate_ReusesIdleBufferWithinFactorOfEight(t *testing.T) {
	p := New()
	first, err := p.TryAllocate(150, newBuf)
	require.NoError(t, err)
	p.Deallocate(first)

	created := 0
	second, err := p.TryAllocate(100, func(size uint64) *Buffer {
		created++
		return newBuf(size)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Same(t, first, second)
}

func TestTryAllocate_DoesNotReuseBeyondFactorOfEight(t *testing.T) {
	p := New()
	first, err := p.TryAllocate(1000, newBuf)
	require.NoError(t, err)
	p.Deallocate(first)

	created := 0
	_, err = p.TryAllocate(10, func(size uint64) *Buffer {
		created++
		return newBuf(size)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestTryAllocate_LeasedBufferNeverReused(t *testing.T) {
	p := New()
	first, err := p.TryAllocate(100, newBuf)
	require.NoError(t, err)

	created := 0
	second, err := p.TryAllocate(100, func(size uint64) *Buffer {
		created++
		return newBuf(size)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.NotSame(t, first, second)
}

func TestUpdateTick_MarksForDeletionAfterMaxUnusedTicks(t *testing.T) {
	p := New()
	buf, err := p.TryAllocate(64, newBuf)
	require.NoError(t, err)
	p.Deallocate(buf)

	for i := 0; i <= MaxUnusedTicks; i++ {
		p.UpdateTick()
	}
	assert.NoError(t, p.Remove(buf))
}

func TestRemove_FailsBeforeAged(t *testing.T) {
	p := New()
	buf, err := p.TryAllocate(64, newBuf)
	require.NoError(t, err)
	p.Deallocate(buf)

	err = p.Remove(buf)
	assert.True(t, errors.Is(err, ErrBufferNotMarkedForDeletion))
}

func TestRemove_ThenStatsExcludesBuffer(t *testing.T) {
	p := New()
	buf, err := p.TryAllocate(64, newBuf)
	require.NoError(t, err)
	p.Deallocate(buf)
	for i := 0; i <= MaxUnusedTicks; i++ {
		p.UpdateTick()
	}
	require.NoError(t, p.Remove(buf))

	stats := p.Stats()
	assert.Equal(t, 0, stats.BufferCount)
}

func TestStats_SeparatesUsedFromUnused(t *testing.T) {
	p := New()
	leased, err := p.TryAllocate(64, newBuf)
	require.NoError(t, err)
	idle, err := p.TryAllocate(128, newBuf)
	require.NoError(t, err)
	p.Deallocate(idle)

	stats := p.Stats()
	assert.Equal(t, uint64(192), stats.AllocatedBytes)
	assert.Equal(t, uint64(128), stats.UnusedBytes)
	assert.Equal(t, 2, stats.BufferCount)
	_ = leased
}
