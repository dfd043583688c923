package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoproc_uploads_total",
		Help: "Total number of accepted video uploads",
	})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoproc_jobs_processed_total",
		Help: "Total number of jobs consumed, by queue and outcome",
	}, []string{"queue", "outcome"})

	JobStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videoproc_job_stage_duration_seconds",
		Help:    "Duration of worker pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoproc_notifications_total",
		Help: "Notification push attempts, by result (delivered, dropped, failed)",
	}, []string{"result"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoproc_connected_clients",
		Help: "Number of currently open notification channels",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoproc_active_workers",
		Help: "Number of workers currently processing a job",
	})
)
