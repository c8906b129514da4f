package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// TagLister is the part of a key store the collector reads.
type TagLister interface {
	Tags(ctx context.Context) ([]domain.TagID, error)
}

// KeyStoreCollector reports the number of tags in a key store at scrape time.
type KeyStoreCollector struct {
	store   TagLister
	timeout time.Duration
	tags    *prometheus.Desc
	up      *prometheus.Desc
}

// NewKeyStoreCollector creates a collector for store.
func NewKeyStoreCollector(store TagLister, backend string) *KeyStoreCollector {
	labels := prometheus.Labels{"backend": backend}
	return &KeyStoreCollector{
		store:   store,
		timeout: 2 * time.Second,
		tags: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "keystore", "tags"),
			"Number of tags with at least one key.",
			nil, labels,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "keystore", "up"),
			"Whether the key store answered the last scrape.",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyStoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tags
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *KeyStoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	tags, err := c.store.Tags(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.tags, prometheus.GaugeValue, float64(len(tags)))
}
