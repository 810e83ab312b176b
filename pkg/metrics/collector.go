// Package metrics exposes a registry of arq.ControlBlock instances as a
// prometheus.Collector, grounded on the exporter.TCPInfoCollector
// pattern: a guarded map of tracked entries, a fixed set of metric
// descriptions, Describe/Collect scraping each entry on demand rather
// than pushing updates.
package metrics

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arqnet/arq"
)

type entry struct {
	cb     *arq.ControlBlock
	labels []string
}

type info struct {
	description *prometheus.Desc
	supplier    func(cb *arq.ControlBlock, labelValues []string) prometheus.Metric
}

// Collector exports per-session transport metrics (congestion window,
// slow-start threshold, smoothed RTT, retransmission timeout, lifetime
// timeout-retransmit count, and segments still waiting to be
// acknowledged) for every
// arq.ControlBlock registered with it.
type Collector struct {
	mu      sync.Mutex
	entries map[*arq.ControlBlock]entry
	infos   []info
}

// NewCollector builds a Collector whose metrics are named
// "<prefix>_<metric>" and carry connectionLabels (declared up front,
// values supplied per session in Add) plus constLabels (fixed for the
// whole process, e.g. {"role": "server"}).
func NewCollector(prefix string, connectionLabels []string, constLabels prometheus.Labels) *Collector {
	c := &Collector{entries: make(map[*arq.ControlBlock]entry)}
	c.addMetrics(prefix, connectionLabels, constLabels)
	return c
}

func (c *Collector) addMetrics(prefix string, labels []string, constLabels prometheus.Labels) {
	mkDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prefix+"_"+name, help, labels, constLabels)
	}

	gaugeDesc := mkDesc("cwnd_segments", "Current congestion window, in segments.")
	c.infos = append(c.infos, info{
		description: gaugeDesc,
		supplier: func(cb *arq.ControlBlock, lv []string) prometheus.Metric {
			return prometheus.MustNewConstMetric(gaugeDesc, prometheus.GaugeValue, float64(cb.CWnd()), lv...)
		},
	})

	ssthreshDesc := mkDesc("ssthresh_segments", "Current slow-start threshold, in segments.")
	c.infos = append(c.infos, info{
		description: ssthreshDesc,
		supplier: func(cb *arq.ControlBlock, lv []string) prometheus.Metric {
			return prometheus.MustNewConstMetric(ssthreshDesc, prometheus.GaugeValue, float64(cb.SSThresh()), lv...)
		},
	})

	srttDesc := mkDesc("srtt_milliseconds", "Smoothed round-trip time estimate.")
	c.infos = append(c.infos, info{
		description: srttDesc,
		supplier: func(cb *arq.ControlBlock, lv []string) prometheus.Metric {
			return prometheus.MustNewConstMetric(srttDesc, prometheus.GaugeValue, float64(cb.SRTT()), lv...)
		},
	})

	rtoDesc := mkDesc("rto_milliseconds", "Current retransmission timeout.")
	c.infos = append(c.infos, info{
		description: rtoDesc,
		supplier: func(cb *arq.ControlBlock, lv []string) prometheus.Metric {
			return prometheus.MustNewConstMetric(rtoDesc, prometheus.GaugeValue, float64(cb.RTO()), lv...)
		},
	})

	retransmitsDesc := mkDesc("retransmits_total", "Cumulative timeout retransmits.")
	c.infos = append(c.infos, info{
		description: retransmitsDesc,
		supplier: func(cb *arq.ControlBlock, lv []string) prometheus.Metric {
			return prometheus.MustNewConstMetric(retransmitsDesc, prometheus.CounterValue, float64(cb.Retransmits()), lv...)
		},
	})

	waitSndDesc := mkDesc("wait_send_segments", "Segments queued or in flight, not yet acknowledged.")
	c.infos = append(c.infos, info{
		description: waitSndDesc,
		supplier: func(cb *arq.ControlBlock, lv []string) prometheus.Metric {
			return prometheus.MustNewConstMetric(waitSndDesc, prometheus.GaugeValue, float64(cb.WaitSnd()), lv...)
		},
	})
}

// Add registers cb for scraping, with labels aligned to the
// connectionLabels given to NewCollector.
func (c *Collector) Add(cb *arq.ControlBlock, labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cb] = entry{cb: cb, labels: labels}
}

// Remove stops scraping cb.
func (c *Collector) Remove(cb *arq.ControlBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cb)
}

// AddConn is a convenience wrapper for netconn.Session-style callers
// that want to label by remote address automatically.
func (c *Collector) AddConn(cb *arq.ControlBlock, remote net.Addr, extraLabels ...string) {
	c.Add(cb, append([]string{remote.String()}, extraLabels...))
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, i := range c.infos {
		descs <- i.description
	}
}

func (c *Collector) Collect(out chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		for _, i := range c.infos {
			out <- i.supplier(e.cb, e.labels)
		}
	}
}
