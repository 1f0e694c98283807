package notify

import (
	"context"
	"fmt"
	"strings"
)

// Field is a labelled value shown in an alert
type Field struct {
	Name  string
	Value string
}

// Alert is a message for ledger administrators
type Alert struct {
	Title  string
	Fields []Field
}

// Text renders the alert as plain text, one field per line
func (a Alert) Text() string {
	var b strings.Builder
	b.WriteString(a.Title)
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return b.String()
}

// Notifier delivers alerts to one admin channel
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// NotifyAll delivers an alert to every notifier, returning how many succeeded.
// Failures are returned so callers can log them.
func NotifyAll(ctx context.Context, notifiers []Notifier, alert Alert) (int, []error) {
	delivered := 0
	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		delivered++
	}
	return delivered, errs
}
