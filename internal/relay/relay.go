package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/logging"
)

// DefaultSubject is the subject resilience events are published on.
const DefaultSubject = "neverstop.resilience"

// Publisher sends raw messages. *nats.Conn implements it.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Stats counts relay outcomes.
type Stats struct {
	Published uint64
	Failed    uint64
}

// Option configures a Relay.
type Option func(*Relay)

// WithSubject sets the subject to publish on.
func WithSubject(subject string) Option {
	return func(r *Relay) {
		if subject != "" {
			r.subject = subject
		}
	}
}

// WithEncoding sets the payload encoding.
func WithEncoding(enc Encoding) Option {
	return func(r *Relay) {
		if enc != "" {
			r.encoding = enc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// Relay forwards resilience events from a bus to a Publisher.
type Relay struct {
	pub      Publisher
	subject  string
	encoding Encoding
	logger   *logging.Logger

	mu    sync.Mutex
	bus   *event.Bus
	subID string

	published atomic.Uint64
	failed    atomic.Uint64
}

// New creates a Relay publishing through pub.
func New(pub Publisher, opts ...Option) *Relay {
	r := &Relay{
		pub:      pub,
		subject:  DefaultSubject,
		encoding: EncodingCBOR,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("relay")
	return r
}

// Attach subscribes the relay to resilience events on bus. Attaching
// again moves the subscription to the new bus.
func (r *Relay) Attach(bus *event.Bus) {
	r.Detach()

	id := bus.Subscribe(event.TypeResilienceRecorded, func(e event.Event) {
		if re, ok := e.(event.ResilienceRecordedEvent); ok {
			r.Forward(MessageFrom(re))
		}
	})

	r.mu.Lock()
	r.bus, r.subID = bus, id
	r.mu.Unlock()
}

// Detach removes the bus subscription. It is safe to call when not
// attached.
func (r *Relay) Detach() {
	r.mu.Lock()
	bus, id := r.bus, r.subID
	r.bus, r.subID = nil, ""
	r.mu.Unlock()

	if bus != nil {
		bus.Unsubscribe(id)
	}
}

// Forward encodes and publishes m. Failures are logged and counted.
func (r *Relay) Forward(m Message) {
	data, err := Encode(r.encoding, m)
	if err != nil {
		r.failed.Add(1)
		r.logger.Error("encoding resilience event", "event_id", m.ID, "error", err)
		return
	}

	msg := nats.NewMsg(r.subject)
	msg.Data = data
	msg.Header.Set("Content-Type", r.encoding.ContentType())
	msg.Header.Set("Neverstop-Event-Type", m.Type)
	msg.Header.Set(nats.MsgIdHdr, m.ID)

	if err := r.pub.PublishMsg(msg); err != nil {
		r.failed.Add(1)
		r.logger.Warn("publishing resilience event", "event_id", m.ID, "subject", r.subject, "error", err)
		return
	}
	r.published.Add(1)
}

// Stats returns the relay counters.
func (r *Relay) Stats() Stats {
	return Stats{Published: r.published.Load(), Failed: r.failed.Load()}
}

// Dial connects to a NATS server. The connection keeps retrying in the
// background when the server is not reachable yet, so a missing broker
// never blocks startup.
func Dial(url, name string, logger *logging.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	log := logger.WithComponent("relay")

	return nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
}
