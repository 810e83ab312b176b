package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqnet/arq"
)

type discardOutput struct{}

func (discardOutput) WriteSegment(b []byte) (int, error) { return len(b), nil }

func TestCollectorDescribeEmitsSixMetrics(t *testing.T) {
	c := NewCollector("arq", []string{"peer"}, nil)
	descs := make(chan *prometheus.Desc, 16)
	c.Describe(descs)
	close(descs)
	count := 0
	for range descs {
		count++
	}
	assert.Equal(t, 6, count)
}

func TestCollectorCollectsRegisteredSessions(t *testing.T) {
	c := NewCollector("arq", []string{"peer"}, nil)
	cb := arq.NewControlBlock(1, discardOutput{})
	c.Add(cb, []string{"1.2.3.4:5"})

	metricsCh := make(chan prometheus.Metric, 16)
	c.Collect(metricsCh)
	close(metricsCh)

	var got []prometheus.Metric
	for m := range metricsCh {
		got = append(got, m)
	}
	require.Len(t, got, 6)

	var m dto.Metric
	require.NoError(t, got[0].Write(&m))
}

func TestCollectorRemoveStopsScraping(t *testing.T) {
	c := NewCollector("arq", nil, nil)
	cb := arq.NewControlBlock(1, discardOutput{})
	c.Add(cb, nil)
	c.Remove(cb)

	metricsCh := make(chan prometheus.Metric, 16)
	c.Collect(metricsCh)
	close(metricsCh)

	count := 0
	for range metricsCh {
		count++
	}
	assert.Zero(t, count)
}
