// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tagvault_uploads_total",
		Help: "Number of images uploaded successfully.",
	})

	UploadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagvault_upload_failures_total",
		Help: "Number of failed upload attempts by pipeline stage.",
	}, []string{"stage"})

	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tagvault_deletes_total",
		Help: "Number of images deleted.",
	})

	TaggingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tagvault_tagging_failures_total",
		Help: "Number of failed tag generation calls.",
	})
)
