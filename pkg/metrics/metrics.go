package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "progreview", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "progreview", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	RevisionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "progreview", Name: "revision_operations_total", Help: "Revision mutations by operation (add, delete, attach, select)."},
		[]string{"op"},
	)
	FileUploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "progreview", Name: "revision_file_upload_bytes_total", Help: "Bytes stored for revision files."},
	)
	CleanupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "progreview", Name: "cleanup_failures_total", Help: "Best-effort cleanups that failed after a committed delete, by kind (comments, file)."},
		[]string{"kind"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(RevisionOps)
	reg.MustRegister(FileUploadBytes)
	reg.MustRegister(CleanupFailures)
}
