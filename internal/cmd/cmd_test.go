package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/fleet"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(t *testing.T, root *cobra.Command, args ...string) (output string, err error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const smallFleet = `
agents:
  - id: edge-1
    orchestrator_id: o1
    type: worker
    status: idle
    health_score: 92
  - id: edge-2
    orchestrator_id: o2
    type: agentic
    status: busy
    health_score: 88
tasks:
  - id: tsk-9
    label: Site Map Vectorization
    assigned_to: edge-2
    priority: high
    workflow_id: wf1
`

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "neverstop" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "neverstop")
	}

	// Compare by Name(), not Use which includes args
	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, name := range []string{"run", "config", "fleet"} {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}

	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("missing persistent --config flag")
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	re := event.NewResilienceRecordedEvent(at, "01J", "FAULT_DETECTED", "agent-7", "Critical fault injected.", "high")

	line := formatEvent(re)
	if !strings.HasPrefix(line, "12:00:05 HIGH ") {
		t.Errorf("formatEvent() = %q, want time and severity prefix", line)
	}
	for _, want := range []string{"FAULT_DETECTED", "agent-7", "Critical fault injected."} {
		if !strings.Contains(line, want) {
			t.Errorf("formatEvent() = %q, missing %q", line, want)
		}
	}
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newEventPrinter(&buf, false)

	p.handle(event.NewThinkingEvent(time.Now(), true, "ignored"))
	p.handle(event.NewResilienceRecordedEvent(time.Now(), "1", "STRATEGY_APPLIED", "AI_MANAGER", "moved", "medium"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("printed %d lines, want 1: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "STRATEGY_APPLIED") {
		t.Errorf("line = %q, want the event kind", lines[0])
	}
}

func TestSeverityStyle(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{"high", highStyle.Render("x")},
		{"medium", mediumStyle.Render("x")},
		{"low", lowStyle.Render("x")},
		{"unknown", mutedStyle.Render("x")},
	}
	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if got := severityStyle(tt.severity).Render("x"); got != tt.want {
				t.Errorf("severityStyle(%q) rendered %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func TestColorEnabled(t *testing.T) {
	if colorEnabled(&bytes.Buffer{}) {
		t.Error("colorEnabled() should be false for a buffer")
	}

	t.Setenv("NO_COLOR", "1")
	if colorEnabled(os.Stdout) {
		t.Error("colorEnabled() should honor NO_COLOR")
	}
}

func TestFleetValidate(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "logging:\n  level: error\n")

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, "fleet.yaml", smallFleet)
		out, err := executeCommand(t, rootCmd, "--config", cfg, "fleet", "validate", path)
		if err != nil {
			t.Fatalf("fleet validate error = %v\n%s", err, out)
		}
		if !strings.Contains(out, "valid (2 agents, 1 tasks, 0 events)") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("unknown assignee", func(t *testing.T) {
		path := writeFile(t, "fleet.yaml", strings.Replace(smallFleet, "assigned_to: edge-2", "assigned_to: ghost", 1))
		if _, err := executeCommand(t, rootCmd, "--config", cfg, "fleet", "validate", path); err == nil {
			t.Error("fleet validate should reject a task assigned to an unknown agent")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := executeCommand(t, rootCmd, "--config", cfg, "fleet", "validate", filepath.Join(t.TempDir(), "none.yaml")); err == nil {
			t.Error("fleet validate should fail for a missing file")
		}
	})
}

func TestFleetSeed_RoundTrip(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "logging:\n  level: error\n")

	out, err := executeCommand(t, rootCmd, "--config", cfg, "fleet", "seed", "--agents", "10", "--seed", "3")
	if err != nil {
		t.Fatalf("fleet seed error = %v", err)
	}

	f, err := fleet.Parse([]byte(out))
	if err != nil {
		t.Fatalf("seeded fleet does not parse: %v\n%s", err, out)
	}
	if len(f.Agents) != 10 {
		t.Errorf("seeded %d agents, want 10", len(f.Agents))
	}
}

func TestConfigShow(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "monitor:\n  interval: 1s\ndecision:\n  backend: gemini\n")

	out, err := executeCommand(t, rootCmd, "--config", cfg, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}

	for _, want := range []string{"# Config file: " + cfg, "interval: 1s", "backend: gemini", "stale_after: 10s"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_Invalid(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "recovery:\n  max_candidates: 0\n")

	_, err := executeCommand(t, rootCmd, "--config", cfg, "config", "show")
	if err == nil || !strings.Contains(err.Error(), "recovery.max_candidates") {
		t.Errorf("config show error = %v, want a max_candidates validation error", err)
	}
}

func TestRun(t *testing.T) {
	cfg := writeFile(t, "config.yaml", `
monitor:
  interval: 20ms
recovery:
  migration_delay: 0s
fleet:
  agents: 6
  seed: 9
  heartbeat_interval: 0s
logging:
  level: error
`)

	out, err := executeCommand(t, rootCmd, "--config", cfg, "run", "--fault", "agent-[12]", "--stress", "--for", "150ms", "--no-color")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}

	for _, want := range []string{"faulted 2 agent(s)", "FAULT_DETECTED", "PROACTIVE_THROTTLING", "recoveries:"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_BadPattern(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "fleet:\n  agents: 3\n  seed: 1\nlogging:\n  level: error\n")

	if _, err := executeCommand(t, rootCmd, "--config", cfg, "run", "--fault", "agent-[", "--for", "10ms"); err == nil {
		t.Error("run should reject an invalid glob")
	}
}
