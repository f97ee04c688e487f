// Package jobs runs scheduled background work.
package jobs

import (
	"fmt"

	"etalase/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ReportSender sends the periodic product report. It reports false when there was nothing to send.
type ReportSender interface {
	SendScheduledReport(to string) (bool, error)
}

// ReportJob mails the product report to a fixed recipient on every tick.
type ReportJob struct {
	sender    ReportSender
	recipient string
}

// NewReportJob creates a ReportJob.
func NewReportJob(sender ReportSender, recipient string) *ReportJob {
	return &ReportJob{sender: sender, recipient: recipient}
}

// Run implements cron.Job. Failures are logged and never stop the schedule.
func (j *ReportJob) Run() {
	sent, err := j.sender.SendScheduledReport(j.recipient)
	switch {
	case err != nil:
		metrics.ReportRuns.WithLabelValues(metrics.ResultFailed).Inc()
		log.Error().Err(err).Str("recipient", j.recipient).Msg("scheduled product report failed")
	case !sent:
		metrics.ReportRuns.WithLabelValues(metrics.ResultSkipped).Inc()
		log.Info().Msg("no products found, skipping scheduled report")
	default:
		metrics.ReportRuns.WithLabelValues(metrics.ResultOK).Inc()
		log.Info().Str("recipient", j.recipient).Msg("scheduled product report sent")
	}
}

// NewScheduler registers job on a standard five-field cron schedule. The caller starts
// and stops the returned scheduler. Overlapping runs are skipped.
func NewScheduler(schedule string, job cron.Job) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddJob(schedule, job); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	return c, nil
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
