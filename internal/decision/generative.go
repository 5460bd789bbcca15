package decision

import (
	"context"
	"time"

	"github.com/oeoc/neverstop/internal/logging"
)

// defaultTimeout bounds one generator call.
const defaultTimeout = 15 * time.Second

// Generator sends a prompt to a text model and returns its reply.
type Generator interface {
	// Name identifies the backend in errors and logs.
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerativeClient implements Client on top of a Generator.
type GenerativeClient struct {
	gen     Generator
	timeout time.Duration
	logger  *logging.Logger
}

// GenerativeOption configures a GenerativeClient.
type GenerativeOption func(*GenerativeClient)

// WithTimeout bounds each decision. Zero disables the bound.
func WithTimeout(d time.Duration) GenerativeOption {
	return func(c *GenerativeClient) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) GenerativeOption {
	return func(c *GenerativeClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewGenerativeClient wraps gen as a Client.
func NewGenerativeClient(gen Generator, opts ...GenerativeOption) *GenerativeClient {
	c := &GenerativeClient{
		gen:     gen,
		timeout: defaultTimeout,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("decision").With("backend", gen.Name())
	return c
}

// Decide implements Client.
func (c *GenerativeClient) Decide(ctx context.Context, req Request) (Decision, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.gen.Generate(ctx, BuildPrompt(req))
	if err != nil {
		err = classify(ctx, c.gen.Name(), err)
		c.logger.Debug("generate failed", "request_id", req.ID, "error", err)
		return Decision{}, err
	}
	c.logger.Debug("generate complete", "request_id", req.ID, "elapsed", time.Since(start))

	return ParseResponse(c.gen.Name(), text, req)
}
