package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oeoc/neverstop/internal/logging"
)

func TestNew(t *testing.T) {
	t.Setenv("NEVERSTOP_TEST_KEY", "k")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	tests := []struct {
		name    string
		s       Settings
		wantErr bool
		check   func(*testing.T, Client)
	}{
		{
			name: "default is rule",
			s:    Settings{},
			check: func(t *testing.T, c Client) {
				assert.IsType(t, &RuleClient{}, c)
			},
		},
		{
			name: "anthropic with key",
			s:    Settings{Backend: BackendAnthropic, APIKeyEnv: "NEVERSTOP_TEST_KEY"},
			check: func(t *testing.T, c Client) {
				gc, ok := c.(*GenerativeClient)
				require.True(t, ok)
				assert.Equal(t, "anthropic", gc.gen.Name())
			},
		},
		{
			name: "gemini with key and model",
			s:    Settings{Backend: BackendGemini, APIKeyEnv: "NEVERSTOP_TEST_KEY", Model: "gemini-x"},
			check: func(t *testing.T, c Client) {
				gc, ok := c.(*GenerativeClient)
				require.True(t, ok)
				assert.Equal(t, "gemini-x", gc.gen.(*GeminiGenerator).model)
			},
		},
		{name: "anthropic without key", s: Settings{Backend: BackendAnthropic, APIKeyEnv: "NEVERSTOP_UNSET"}, wantErr: true},
		{name: "gemini without key", s: Settings{Backend: BackendGemini}, wantErr: true},
		{name: "unknown backend", s: Settings{Backend: "oracle"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.s, logging.NopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}
