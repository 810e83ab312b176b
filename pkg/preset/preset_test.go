package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqnet/arq"
)

func TestBuiltinsContainsFourProfiles(t *testing.T) {
	b := Builtins()
	require.Len(t, b, 4)
	assert.Contains(t, b, "normal")
	assert.Contains(t, b, "fast")
	assert.Contains(t, b, "fast2")
	assert.Contains(t, b, "fastest")
}

func TestProfileApplyConfiguresControlBlock(t *testing.T) {
	cb := arq.NewControlBlock(1, discardOutput{})
	require.NoError(t, Fastest.Apply(cb))
}

func TestProfileApplySetsMTU(t *testing.T) {
	cb := arq.NewControlBlock(1, discardOutput{})
	p := Normal
	p.MTU = 600
	require.NoError(t, p.Apply(cb))
	assert.EqualValues(t, 600-24, cb.MSS())
}

func TestProfileApplyRejectsBadMTU(t *testing.T) {
	cb := arq.NewControlBlock(1, discardOutput{})
	p := Normal
	p.MTU = 1
	assert.Error(t, p.Apply(cb))
}

func TestLoadParsesSections(t *testing.T) {
	doc := []byte(`
[turbo]
nodelay = 1
interval = 15
resend = 2
nocwnd = true
sndwnd = 256
rcvwnd = 256
mtu = 1200
stream = true
`)
	profiles, err := Load(doc)
	require.NoError(t, err)
	require.Contains(t, profiles, "turbo")

	p := profiles["turbo"]
	assert.Equal(t, 1, p.Nodelay)
	assert.Equal(t, 15, p.Interval)
	assert.Equal(t, 2, p.Resend)
	assert.True(t, p.NoCwnd)
	assert.Equal(t, 256, p.SndWnd)
	assert.Equal(t, 256, p.RcvWnd)
	assert.Equal(t, 1200, p.MTU)
	assert.True(t, p.Stream)
}

func TestLoadDefaultsMissingKeysToNormal(t *testing.T) {
	doc := []byte(`
[bare]
interval = 77
`)
	profiles, err := Load(doc)
	require.NoError(t, err)
	p := profiles["bare"]
	assert.Equal(t, 77, p.Interval)
	assert.Equal(t, Normal.Nodelay, p.Nodelay)
	assert.Equal(t, Normal.SndWnd, p.SndWnd)
}

func TestLoadRejectsInvalidValue(t *testing.T) {
	doc := []byte(`
[broken]
nodelay = not-a-number
`)
	_, err := Load(doc)
	assert.Error(t, err)
}

type discardOutput struct{}

func (discardOutput) WriteSegment(b []byte) (int, error) { return len(b), nil }
