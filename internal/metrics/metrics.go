// Package metrics exposes Prometheus counters for the attendance flow.
// The registry is served at /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsIssued counts QR sessions created by teachers.
	SessionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_sessions_issued_total",
		Help: "QR class sessions issued, by course.",
	}, []string{"course"})

	// NoClassMarked counts explicit no-class sentinels recorded.
	NoClassMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_no_class_total",
		Help: "Explicit no-class declarations, by course.",
	}, []string{"course"})

	// SessionsExpired counts sessions deactivated after their window passed,
	// split by which path noticed (lazy read flip vs background sweep).
	SessionsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_sessions_expired_total",
		Help: "Class sessions deactivated on expiry, by path.",
	}, []string{"path"})

	// Scans counts attendance scan attempts by outcome
	// (recorded, malformed_token, token_expired, not_enrolled, already_marked, error).
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_scans_total",
		Help: "Attendance scan attempts, by outcome.",
	}, []string{"outcome"})
)
