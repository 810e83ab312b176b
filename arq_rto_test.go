package arq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateRTTFirstSampleSeeds(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.updateRTT(100)
	assert.EqualValues(t, 100, cb.srtt)
	assert.EqualValues(t, 50, cb.rttvar)
	assert.True(t, cb.hasRTT)
}

func TestUpdateRTTSmoothsSubsequentSamples(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.updateRTT(100)
	cb.updateRTT(200)
	// delta=100, rttvar=(3*50+100)/4=62, srtt=(7*100+200)/8=112
	assert.EqualValues(t, 62, cb.rttvar)
	assert.EqualValues(t, 112, cb.srtt)
}

func TestUpdateRTTBoundsRTO(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.rxMinRTO = 100
	cb.updateRTT(1)
	assert.GreaterOrEqual(t, cb.rxRTO, cb.rxMinRTO)

	cb.updateRTT(1000000)
	assert.LessOrEqual(t, cb.rxRTO, uint32(rtoMax))
}

func TestUpdateRTTNeverBelowOne(t *testing.T) {
	cb := NewControlBlock(1, &nullOutput{})
	cb.updateRTT(0)
	cb.updateRTT(0)
	assert.GreaterOrEqual(t, cb.srtt, int32(1))
}
