// Package notify delivers formatted alert messages to a list of recipients
package notify

import (
	"context"
	"strings"

	"github.com/go-pkgz/lgr"
)

// Delivery is the outcome of sending a message to a single recipient
type Delivery struct {
	Recipient string
	Err       error
}

// Delivered returns number of successful deliveries
func Delivered(ds []Delivery) int {
	n := 0
	for _, d := range ds {
		if d.Err == nil {
			n++
		}
	}
	return n
}

// Log is a transport printing messages to the log instead of sending them, used for dry runs
type Log struct{}

// Send logs text once per recipient, never fails
func (Log) Send(_ context.Context, recipients []string, text string) []Delivery {
	recipients = cleanRecipients(recipients)
	if len(recipients) == 0 {
		lgr.Printf("[INFO] dry run, message without recipients:\n%s", text)
		return nil
	}
	res := make([]Delivery, 0, len(recipients))
	for _, r := range recipients {
		lgr.Printf("[INFO] dry run, message for %s:\n%s", r, text)
		res = append(res, Delivery{Recipient: r})
	}
	return res
}

// cleanRecipients trims ids and drops blank ones
func cleanRecipients(recipients []string) []string {
	res := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			res = append(res, r)
		}
	}
	return res
}
