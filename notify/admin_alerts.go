package notify

import (
	"context"
	"strconv"

	"earnbot/events"
	log "github.com/sirupsen/logrus"
)

// AdminAlerts forwards withdrawal activity to admin channels
type AdminAlerts struct {
	notifiers []Notifier
}

// NewAdminAlerts creates an alert fan-out over the given notifiers
func NewAdminAlerts(notifiers ...Notifier) *AdminAlerts {
	return &AdminAlerts{notifiers: notifiers}
}

// Attach subscribes the alerts to the event bus
func (a *AdminAlerts) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWithdrawalRequested, a.handleWithdrawalRequested)
}

func (a *AdminAlerts) handleWithdrawalRequested(ctx context.Context, event events.Event) {
	e, ok := event.(events.WithdrawalRequestedEvent)
	if !ok {
		log.Errorf("AdminAlerts: unexpected event type %T", event)
		return
	}

	alert := Alert{
		Title: "New withdrawal request",
		Fields: []Field{
			{Name: "ID", Value: strconv.FormatInt(e.WithdrawalID, 10)},
			{Name: "User", Value: userLabel(e.ExternalID, e.DisplayName)},
			{Name: "Amount", Value: e.Amount.StringFixed(2)},
			{Name: "Method", Value: e.Method.DisplayName()},
			{Name: "Number", Value: e.Destination},
		},
	}

	delivered, errs := NotifyAll(ctx, a.notifiers, alert)
	for _, err := range errs {
		log.WithFields(log.Fields{
			"withdrawal_id": e.WithdrawalID,
			"error":         err,
		}).Warn("Failed to deliver withdrawal alert")
	}

	log.WithFields(log.Fields{
		"withdrawal_id": e.WithdrawalID,
		"delivered":     delivered,
	}).Debug("Withdrawal alert sent")
}

func userLabel(externalID int64, displayName string) string {
	id := strconv.FormatInt(externalID, 10)
	if displayName == "" {
		return id
	}
	return displayName + " (" + id + ")"
}
