package notify

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Breaker stops calling a failing transport for a while so a dead mail
// relay does not add its timeout to every booking.
type Breaker struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Notifier, maxFailures uint32, openTimeout time.Duration, log *zap.Logger) *Breaker {
	if maxFailures == 0 {
		maxFailures = 1
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("notifier circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) SendBookingNotification(ctx context.Context, msg Message) error {
	return b.call(KindBooking, msg, func() error { return b.next.SendBookingNotification(ctx, msg) })
}

func (b *Breaker) SendReminder(ctx context.Context, msg Message) error {
	return b.call(KindReminder, msg, func() error { return b.next.SendReminder(ctx, msg) })
}

func (b *Breaker) call(kind Kind, msg Message, send func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, send()
	})
	if err != nil {
		return deliveryError(kind, msg, err)
	}
	return nil
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
