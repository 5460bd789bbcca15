package engine

import (
	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/decision"
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/logging"
	"github.com/oeoc/neverstop/internal/relay"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	clock     clock.Clock
	logger    *logging.Logger
	client    decision.Client
	fleet     *fleet.Fleet
	publisher relay.Publisher
}

// WithClock sets the time source shared by every component.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDecisionClient overrides the client built from the decision section.
func WithDecisionClient(c decision.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithFleet overrides the fleet file and the seeded fleet.
func WithFleet(f fleet.Fleet) Option {
	return func(o *options) { o.fleet = &f }
}

// WithPublisher sends relayed events to p instead of dialing NATS. It only
// takes effect when the relay is enabled.
func WithPublisher(p relay.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}
