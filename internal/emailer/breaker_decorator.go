package emailer

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

const (
	timeInterval = time.Duration(30) * time.Second
	timeTimeOut  = time.Duration(15) * time.Second

	repeatNumber = 5
)

type sender interface {
	Send(to, subject, additionalHeaders, body string) error
}

// BreakerSender stops hammering an unreachable mail server: after
// repeatNumber consecutive failures new sends fail fast until the breaker
// half-opens.
type BreakerSender struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped sender
}

func NewBreakerSender(name string, wrapped sender) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeInterval,
		Timeout:     timeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= repeatNumber
		},
	}
	return &BreakerSender{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerSender) Send(to, subject, additionalHeaders, body string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.wrapped.Send(to, subject, additionalHeaders, body)
	})
	if err != nil {
		return errors.New(b.name + " unavailable: " + err.Error())
	}
	return nil
}
