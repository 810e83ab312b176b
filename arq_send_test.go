package arq

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmptyBufferIsError(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	err := cb.Send(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSendFragmentsMessage(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	require.NoError(t, cb.SetMTU(headerSize + 30))
	payload := bytes.Repeat([]byte{'x'}, 75) // mss=30 -> 3 fragments

	require.NoError(t, cb.Send(payload))
	require.Len(t, cb.sndQueue, 3)
	assert.EqualValues(t, 2, cb.sndQueue[0].frg)
	assert.EqualValues(t, 1, cb.sndQueue[1].frg)
	assert.EqualValues(t, 0, cb.sndQueue[2].frg)

	total := 0
	for _, seg := range cb.sndQueue {
		total += len(seg.data)
	}
	assert.Equal(t, len(payload), total)
}

func TestSendTooManyFragmentsIsError(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	require.NoError(t, cb.SetMTU(minMTU))
	payload := bytes.Repeat([]byte{'x'}, (maxFragmentCount+1)*(minMTU-headerSize))
	err := cb.Send(payload)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSendStreamModeCoalescesTail(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	require.NoError(t, cb.SetMTU(headerSize + 30))
	cb.SetStream(true)

	require.NoError(t, cb.Send([]byte("abc")))
	require.Len(t, cb.sndQueue, 1)

	require.NoError(t, cb.Send([]byte("defgh")))
	// tail segment had room (3+5=8 <= mss 30), so it should have been
	// extended in place rather than creating a new segment.
	require.Len(t, cb.sndQueue, 1)
	assert.Equal(t, "abcdefgh", string(cb.sndQueue[0].data))
	assert.EqualValues(t, 0, cb.sndQueue[0].frg)
}

func TestSendStreamModeOverflowsIntoNewSegment(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	require.NoError(t, cb.SetMTU(minMTU)) // mss 26
	cb.SetStream(true)

	require.NoError(t, cb.Send([]byte("ab")))
	require.NoError(t, cb.Send([]byte("cdefghijklmnopqrstuvwxyzEFGH")))
	require.Len(t, cb.sndQueue, 2)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", string(cb.sndQueue[0].data))
	assert.Equal(t, "EFGH", string(cb.sndQueue[1].data))
}

func TestWaitSnd(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	require.NoError(t, cb.SetMTU(headerSize + 30))
	assert.Equal(t, 0, cb.WaitSnd())
	require.NoError(t, cb.Send([]byte("hello")))
	assert.Equal(t, 1, cb.WaitSnd())
}
