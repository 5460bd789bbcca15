package decision

import (
	"fmt"
	"os"
	"time"

	"github.com/oeoc/neverstop/internal/logging"
)

// Backend names accepted by New.
const (
	BackendRule      = "rule"
	BackendAnthropic = "anthropic"
	BackendGemini    = "gemini"
)

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendRule, BackendAnthropic, BackendGemini}
}

// Settings selects and configures a Client.
type Settings struct {
	Backend   string
	Model     string
	APIKeyEnv string // environment variable holding the API key
	Endpoint  string
	Timeout   time.Duration
}

// New builds the Client named by s.Backend. Generative backends read their
// key from s.APIKeyEnv, falling back to the provider's usual variables.
func New(s Settings, logger *logging.Logger) (Client, error) {
	switch s.Backend {
	case "", BackendRule:
		return NewRuleClient(), nil

	case BackendAnthropic:
		gen, err := NewAnthropicGenerator(apiKey(s.APIKeyEnv, "ANTHROPIC_API_KEY"),
			WithModel(s.Model), WithEndpoint(s.Endpoint))
		if err != nil {
			return nil, err
		}
		return NewGenerativeClient(gen, WithTimeout(s.Timeout), WithLogger(logger)), nil

	case BackendGemini:
		gen, err := NewGeminiGenerator(apiKey(s.APIKeyEnv, "GEMINI_API_KEY", "GOOGLE_API_KEY"),
			WithModel(s.Model), WithEndpoint(s.Endpoint))
		if err != nil {
			return nil, err
		}
		return NewGenerativeClient(gen, WithTimeout(s.Timeout), WithLogger(logger)), nil

	default:
		return nil, fmt.Errorf("unknown decision backend %q (valid: %v)", s.Backend, Backends())
	}
}

func apiKey(envs ...string) string {
	for _, name := range envs {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
