// Public domain.

// Package metrics counts the work of a makewcs run.  Counts are written
// in the Prometheus text format for a node exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hstwcs/makewcs/internal/mwerr"
)

var (
	imagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makewcs_images_total",
			Help: "Images processed, by result.",
		},
		[]string{"result"},
	)

	chipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "makewcs_chips_updated_total",
			Help: "Science extensions with an updated WCS.",
		},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makewcs_failures_total",
			Help: "Failed images, by error kind.",
		},
		[]string{"kind"},
	)

	// Registry holds the makewcs collectors.
	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(imagesTotal)
	Registry.MustRegister(chipsTotal)
	Registry.MustRegister(failuresTotal)
}

// ImageDone records the result of one image.  Err nil is success.
func ImageDone(err error) {
	if err == nil {
		imagesTotal.WithLabelValues("updated").Inc()
		return
	}
	imagesTotal.WithLabelValues("failed").Inc()
	failuresTotal.WithLabelValues(mwerr.KindOf(err).String()).Inc()
}

// ImageSkipped records an image left unchanged.
func ImageSkipped() {
	imagesTotal.WithLabelValues("skipped").Inc()
}

// ChipsUpdated adds n updated extensions.
func ChipsUpdated(n int) {
	chipsTotal.Add(float64(n))
}

// WriteTextfile writes the current counts to path.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
