package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/questx-lab/engagement/internal/common"
)

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	// default collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, counter := range common.PromCounters {
		registry.MustRegister(counter)
	}

	for _, histogram := range common.PromHistograms {
		registry.MustRegister(histogram)
	}

	return registry
}

func NewHandler() http.Handler {
	return promhttp.HandlerFor(NewRegistry(), promhttp.HandlerOpts{})
}

// Inc increases the counter registered under name. Unknown names are ignored.
func Inc(name string, labels ...string) {
	counter, ok := common.PromCounters[name]
	if !ok {
		return
	}

	counter.WithLabelValues(labels...).Inc()
}

func ObserveSince(name string, start time.Time, labels ...string) {
	histogram, ok := common.PromHistograms[name]
	if !ok {
		return
	}

	histogram.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}
