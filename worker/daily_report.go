package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"earnbot/notify"
	"earnbot/service"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultReportSchedule posts the report at 14:00 UTC
const DefaultReportSchedule = "0 14 * * *"

// DailyReportJob posts ledger statistics to the admin notifiers on a schedule
type DailyReportJob struct {
	stats     service.StatsService
	notifiers []notify.Notifier
	schedule  string
	timeout   time.Duration
	cron      *cron.Cron
}

// NewDailyReportJob creates a report job; an empty schedule uses DefaultReportSchedule
func NewDailyReportJob(stats service.StatsService, schedule string, notifiers ...notify.Notifier) *DailyReportJob {
	if schedule == "" {
		schedule = DefaultReportSchedule
	}
	return &DailyReportJob{
		stats:     stats,
		notifiers: notifiers,
		schedule:  schedule,
		timeout:   time.Minute,
	}
}

// Start registers the job with a UTC cron scheduler and starts it
func (j *DailyReportJob) Start() error {
	if j.cron != nil {
		return fmt.Errorf("daily report job already started")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(j.schedule, j.runScheduled); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", j.schedule, err)
	}

	c.Start()
	j.cron = c

	log.WithFields(log.Fields{
		"schedule":  j.schedule,
		"notifiers": len(j.notifiers),
	}).Info("Daily report job started")

	return nil
}

// Stop halts the scheduler and waits for a running report to finish
func (j *DailyReportJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}

	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("Timed out waiting for daily report job to stop")
	}
	j.cron = nil
}

func (j *DailyReportJob) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		log.WithError(err).Error("Daily report failed")
	}
}

// Run builds the report once and sends it to every notifier
func (j *DailyReportJob) Run(ctx context.Context) error {
	stats, err := j.stats.GetSystemStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get system stats: %w", err)
	}

	alert := notify.Alert{
		Title: "Daily ledger report",
		Fields: []notify.Field{
			{Name: "Accounts", Value: strconv.Itoa(stats.TotalAccounts)},
			{Name: "Active today", Value: strconv.Itoa(stats.ActiveToday)},
			{Name: "Total earned", Value: stats.TotalEarned.StringFixed(2)},
			{Name: "Total withdrawn", Value: stats.TotalWithdrawn.StringFixed(2)},
			{Name: "Pending", Value: fmt.Sprintf("%s (%d requests)", stats.PendingWithdrawal.StringFixed(2), stats.PendingCount)},
		},
	}

	delivered, errs := notify.NotifyAll(ctx, j.notifiers, alert)
	for _, err := range errs {
		log.WithError(err).Warn("Failed to deliver daily report")
	}
	if len(j.notifiers) > 0 && delivered == 0 {
		return fmt.Errorf("daily report was not delivered to any notifier")
	}

	return nil
}
