package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts register/login outcomes.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etalase_auth_attempts_total",
		Help: "Register and login attempts by outcome.",
	}, []string{"op", "result"})

	// Emails counts outbound e-mail dispatches.
	Emails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etalase_emails_total",
		Help: "Outbound e-mails by kind and outcome.",
	}, []string{"kind", "result"})

	// ReportRuns counts scheduled report executions.
	ReportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etalase_report_runs_total",
		Help: "Scheduled product report runs by outcome.",
	}, []string{"result"})
)

// Outcome labels.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultRefused = "refused"
	ResultSkipped = "skipped"
)
