package arq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateFirstCallLatchesAndFlushes(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.Update(1000)
	assert.True(t, cb.updated)
	assert.EqualValues(t, 1000, cb.current)
}

func TestUpdateAdvancesFlushSchedule(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.interval = 100
	cb.Update(0)
	firstFlush := cb.tsFlush
	assert.EqualValues(t, 100, firstFlush)

	cb.Update(50) // before schedule, should not re-flush or advance
	assert.EqualValues(t, firstFlush, cb.tsFlush)

	cb.Update(100) // exactly due
	assert.EqualValues(t, 200, cb.tsFlush)
}

func TestUpdateHandlesClockJumpBackwards(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.interval = 100
	cb.Update(1_000_000)
	cb.Update(10) // far in the past relative to schedule: treated as a jump
	assert.EqualValues(t, 110, cb.tsFlush)
}

func TestCheckZeroWhenNotYetUpdated(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	assert.EqualValues(t, 0, cb.Check(0))
}

func TestCheckZeroWhenRetransmitDue(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.Update(0)
	cb.sndBuf = append(cb.sndBuf, &segment{sn: 0, resendts: 0})
	assert.EqualValues(t, 0, cb.Check(5))
}

func TestCheckReturnsMinimumOfDeadlines(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.interval = 100
	cb.Update(0)
	cb.sndBuf = append(cb.sndBuf, &segment{sn: 0, resendts: 30})
	got := cb.Check(0)
	assert.EqualValues(t, 30, got)
}

func TestCheckDoesNotMutateState(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.interval = 100
	cb.Update(0)
	before := cb.tsFlush
	cb.Check(10)
	assert.Equal(t, before, cb.tsFlush)
}
