package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/tempo/internal/apperr"
)

// Formatter renders the preview text for a day file.
type Formatter interface {
	// DaySummary renders content. context names the day when the file has
	// no title or date; prefix and suffix, when non-empty, become the first
	// and last lines.
	DaySummary(content, context, prefix, suffix string) string
}

// Formatter names accepted by Lookup.
const (
	FormatterDefault = "default"
	FormatterDecimal = "decimal"
)

var formatters = map[string]Formatter{
	FormatterDefault: durationFormatter{render: Clock},
	FormatterDecimal: durationFormatter{render: Decimal},
}

// Lookup returns the formatter registered under name. An empty name selects
// the default formatter.
func Lookup(name string) (Formatter, error) {
	if name == "" {
		name = FormatterDefault
	}
	f, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("summary: %w: %q", apperr.ErrUnknownFormatter, name)
	}
	return f, nil
}

// Names lists the registered formatter names, sorted.
func Names() []string {
	out := make([]string, 0, len(formatters))
	for n := range formatters {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type durationFormatter struct {
	render func(time.Duration) string
}

func (f durationFormatter) DaySummary(content, context, prefix, suffix string) string {
	day := Parse(content)

	var lines []string
	if prefix != "" {
		lines = append(lines, prefix)
	}
	lines = append(lines, "# "+heading(day, context), "")

	totals := day.ByProject()
	if len(totals) == 0 {
		lines = append(lines, "No entries.")
	} else {
		width := 0
		for _, t := range totals {
			width = max(width, len(t.Project))
		}
		for _, t := range totals {
			lines = append(lines, fmt.Sprintf("%-*s  %s", width, t.Project, f.render(t.Duration)))
		}
		lines = append(lines, "", "Total: "+f.render(day.Total()))
	}
	if day.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped %d invalid entries.", day.Skipped))
	}
	if suffix != "" {
		lines = append(lines, suffix)
	}
	return strings.Join(lines, "\n")
}

func heading(day *Day, context string) string {
	switch {
	case day.Title != "" && day.Date != "":
		return day.Title + " (" + day.Date + ")"
	case day.Title != "":
		return day.Title
	case day.Date != "":
		return day.Date
	case context != "":
		return context
	default:
		return "Today"
	}
}

// Clock renders d as "1h 05m", "45m" or "3h".
func Clock(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %02dm", h, m)
	}
}

// Decimal renders d in hours with two decimals.
func Decimal(d time.Duration) string {
	return fmt.Sprintf("%.2fh", d.Hours())
}
