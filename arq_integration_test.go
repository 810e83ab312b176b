package arq_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqnet/arq"
	"github.com/arqnet/arq/pkg/sim"
)

// runTicks drives both control blocks and their link for n milliseconds
// of simulated time, delivering in-flight packets each tick.
func runTicks(a, b *arq.ControlBlock, linkAB, linkBA *sim.Link, now *uint32, n uint32) {
	for i := uint32(0); i < n; i++ {
		*now++
		a.Update(*now)
		b.Update(*now)
		linkAB.Deliver(*now)
		linkBA.Deliver(*now)
	}
}

func TestEndToEndReliableDeliveryOverLossyLink(t *testing.T) {
	var now uint32
	var a, b *arq.ControlBlock
	linkAB := sim.NewLink(20, 10, 40, 1, func(data []byte) { _ = b.Input(data) })
	linkBA := sim.NewLink(20, 10, 40, 2, func(data []byte) { _ = a.Input(data) })
	a = arq.NewControlBlock(0xC0FFEE, sim.NewEndpoint(linkAB, &now))
	b = arq.NewControlBlock(0xC0FFEE, sim.NewEndpoint(linkBA, &now))

	a.Nodelay(1, 10, 2, true)
	b.Nodelay(1, 10, 2, true)

	const message = "the quick brown fox jumps over the lazy dog"
	require.NoError(t, a.Send([]byte(message)))

	runTicks(a, b, linkAB, linkBA, &now, 5000)

	buf := make([]byte, 1024)
	n, err := b.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, message, string(buf[:n]))
}

func TestEndToEndMultipleMessagesPreserveOrder(t *testing.T) {
	var now uint32
	var a, b *arq.ControlBlock
	linkAB := sim.NewLink(10, 5, 20, 3, func(data []byte) { _ = b.Input(data) })
	linkBA := sim.NewLink(10, 5, 20, 4, func(data []byte) { _ = a.Input(data) })
	a = arq.NewControlBlock(1, sim.NewEndpoint(linkAB, &now))
	b = arq.NewControlBlock(1, sim.NewEndpoint(linkBA, &now))
	a.Nodelay(1, 10, 2, true)
	b.Nodelay(1, 10, 2, true)

	messages := []string{"one", "two", "three", "four"}
	for _, m := range messages {
		require.NoError(t, a.Send([]byte(m)))
	}

	runTicks(a, b, linkAB, linkBA, &now, 5000)

	buf := make([]byte, 64)
	for _, want := range messages {
		n, err := b.Recv(buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf[:n]))
	}
}

func TestEndToEndDeadLinkDetectedWhenPeerUnreachable(t *testing.T) {
	var now uint32
	// 100% loss: nothing ever arrives.
	linkAB := sim.NewLink(100, 5, 5, 5, func([]byte) {})
	a := arq.NewControlBlock(1, sim.NewEndpoint(linkAB, &now))
	a.SetDeadLink(3)
	a.Nodelay(1, 10, 0, true)
	require.NoError(t, a.Send([]byte("hello")))

	for i := uint32(0); i < 2000 && !a.DeadLink(); i++ {
		now++
		a.Update(now)
	}
	assert.True(t, a.DeadLink())
}
