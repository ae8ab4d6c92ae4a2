package multistream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferReadWrite(t *testing.T) {
	rb := NewRingBuffer[int16](4)
	assert.Equal(t, 4, rb.Cap())
	assert.Equal(t, 0, rb.Len())

	n, err := rb.Write([]int16{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, rb.Len())

	buf := make([]int16, 2)
	n, err = rb.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{1, 2}, buf)

	_, err = rb.Write([]int16{4, 5})
	require.NoError(t, err)
	out := make([]int16, 8)
	n, err = rb.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4, 5}, out[:n])

	_, err = rb.Read(out)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer[int16](3)
	_, err := rb.Write([]int16{1, 2})
	require.NoError(t, err)
	_, err = rb.Write([]int16{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3, rb.Len())

	out := make([]int16, 3)
	_, err = rb.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{2, 3, 4}, out)

	n, err := rb.Write([]int16{5, 6, 7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = rb.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{7, 8, 9}, out)
}

func TestRingBufferPeek(t *testing.T) {
	rb := NewRingBuffer[[]byte](2)
	_, err := rb.Write([][]byte{{1}, {2}})
	require.NoError(t, err)

	next := make([][]byte, 1)
	assert.Equal(t, 1, rb.Peek(next))
	assert.Equal(t, []byte{1}, next[0])
	assert.Equal(t, 2, rb.Len())
}

func TestRingBufferEmptyArguments(t *testing.T) {
	rb := NewRingBuffer[int16](2)
	_, err := rb.Write(nil)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
	_, err = rb.Read(nil)
	assert.ErrorIs(t, err, ErrShortBuffer)
}
