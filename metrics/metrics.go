// Package metrics records payment flow counters and latencies behind a
// minimal Recorder interface so callers can run without prometheus wired.
package metrics

import "time"

// Event names recorded across the module.
const (
	EventPaymentAttempt   = "payment_attempt"
	EventPaymentConfirmed = "payment_confirmed"
	EventPaymentFailed    = "payment_failed"
	EventRequestUnpaid    = "request_unpaid"
	EventRequestPaid      = "request_paid"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
