package localizer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	poseRateDesc = prometheus.NewDesc(
		"localizer_pose_rate_hz",
		"Pose samples per second of device time over the last completed window.",
		[]string{"object"}, nil,
	)
	samplesDesc = prometheus.NewDesc(
		"localizer_samples_total",
		"Pose samples accepted for an object.",
		[]string{"object"}, nil,
	)
	droppedDesc = prometheus.NewDesc(
		"localizer_dropped_samples_total",
		"Samples dropped because they were not rigid body poses.",
		[]string{"object"}, nil,
	)
	subscribeFailuresDesc = prometheus.NewDesc(
		"localizer_subscribe_failures_total",
		"Failed subscribe attempts for an object.",
		[]string{"object"}, nil,
	)
)

// Collector exports per object statistics of a Localizer.
type Collector struct {
	l *Localizer
}

// NewCollector returns a prometheus collector reading from l on every scrape.
func NewCollector(l *Localizer) *Collector {
	return &Collector{l: l}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poseRateDesc
	ch <- samplesDesc
	ch <- droppedDesc
	ch <- subscribeFailuresDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, obj := range c.l.registry.snapshot() {
		st := obj.stats()
		ch <- prometheus.MustNewConstMetric(poseRateDesc, prometheus.GaugeValue, st.Rate, st.Name)
		ch <- prometheus.MustNewConstMetric(samplesDesc, prometheus.CounterValue, float64(st.Samples), st.Name)
		ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(st.DroppedSamples), st.Name)
		ch <- prometheus.MustNewConstMetric(subscribeFailuresDesc, prometheus.CounterValue,
			float64(st.SubscribeFailures), st.Name)
	}
}
