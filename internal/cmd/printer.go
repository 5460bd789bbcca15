package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/fleet"
)

var (
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true) // Red
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))            // Amber
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))            // Green
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))            // Gray
)

// eventPrinter writes one line per resilience event.
type eventPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
}

func newEventPrinter(w io.Writer, styled bool) *eventPrinter {
	return &eventPrinter{w: w, styled: styled}
}

// handle is an event.Handler for resilience events.
func (p *eventPrinter) handle(e event.Event) {
	re, ok := e.(event.ResilienceRecordedEvent)
	if !ok {
		return
	}

	line := formatEvent(re)
	if p.styled {
		line = severityStyle(re.Severity).Render(line)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, line)
}

func formatEvent(re event.ResilienceRecordedEvent) string {
	return fmt.Sprintf("%s %-6s %-22s %-10s %s",
		re.Timestamp().Format("15:04:05"),
		strings.ToUpper(re.Severity),
		re.Kind,
		re.TargetAgentID,
		re.Details,
	)
}

func severityStyle(severity string) lipgloss.Style {
	switch fleet.Severity(severity) {
	case fleet.SeverityHigh:
		return highStyle
	case fleet.SeverityMedium:
		return mediumStyle
	case fleet.SeverityLow:
		return lowStyle
	default:
		return mutedStyle
	}
}

// colorEnabled reports whether w is a terminal that accepts color.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
