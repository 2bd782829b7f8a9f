package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// defaultWidth is used when the output is not a terminal.
const defaultWidth = 120

// badgeColors maps status and priority values to ANSI 256 colors.
var badgeColors = map[string]string{
	"active":     "33",
	"completed":  "42",
	"onHold":     "241",
	"backlog":    "241",
	"todo":       "245",
	"inProgress": "33",
	"inReview":   "214",
	"done":       "42",
	"low":        "245",
	"medium":     "250",
	"high":       "208",
	"urgent":     "196",
}

// printer renders command output as tables or JSON.
type printer struct {
	out   io.Writer
	json  bool
	color bool
	width int
}

func (a *app) printer(cmd *cobra.Command) *printer {
	p := &printer{out: cmd.OutOrStdout(), json: a.jsonOut, width: defaultWidth}
	if f, ok := p.out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		p.color = !a.noColor
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			p.width = w
		}
	}
	return p
}

// JSON writes v as indented JSON.
func (p *printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

// badge renders a status or priority value, colored on a terminal.
func (p *printer) badge(value string) string {
	if !p.color {
		return value
	}
	color, ok := badgeColors[value]
	if !ok {
		return value
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(value)
}

// fit truncates s to the width left after used columns.
func (p *printer) fit(s string, used int) string {
	limit := p.width - used
	if limit < 10 {
		limit = 10
	}
	return truncate(s, limit)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// matchTags reports whether every pattern matches at least one tag.
func matchTags(tags, patterns []string) bool {
	for _, pat := range patterns {
		found := false
		for _, tag := range tags {
			if ok, _ := doublestar.Match(pat, tag); ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// validateTagPatterns rejects malformed --tag globs up front.
func validateTagPatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return invalidFlag("tag", fmt.Errorf("bad pattern %q", pat))
		}
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return t.UTC(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
