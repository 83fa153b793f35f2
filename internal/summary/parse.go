// Package summary parses time-tracking day files and renders day summaries.
package summary

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NoProject groups entries written without a "project:" label.
const NoProject = "(none)"

// entryRe matches "- 09:00-10:30 project: description" with an optional
// list marker and optional spaces around the dash.
var entryRe = regexp.MustCompile(`^\s*(?:[-*+]\s+)?(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*(.*)$`)

// Entry is one tracked time span.
type Entry struct {
	Start       time.Duration // offset from midnight
	End         time.Duration
	Project     string
	Description string
}

// Duration returns the span length. An end before the start wraps past
// midnight.
func (e Entry) Duration() time.Duration {
	d := e.End - e.Start
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// ProjectTotal is the time spent on one project.
type ProjectTotal struct {
	Project  string
	Duration time.Duration
}

// Day is a parsed day file.
type Day struct {
	Date    string
	Title   string
	Entries []Entry
	// Skipped counts lines that looked like entries but had invalid times.
	Skipped int
}

// Total returns the sum of all entry durations.
func (d *Day) Total() time.Duration {
	var total time.Duration
	for _, e := range d.Entries {
		total += e.Duration()
	}
	return total
}

// ByProject returns per-project totals, longest first, ties by name.
func (d *Day) ByProject() []ProjectTotal {
	sums := make(map[string]time.Duration)
	for _, e := range d.Entries {
		sums[e.Project] += e.Duration()
	}
	out := make([]ProjectTotal, 0, len(sums))
	for p, dur := range sums {
		out = append(out, ProjectTotal{Project: p, Duration: dur})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Duration != out[j].Duration {
			return out[i].Duration > out[j].Duration
		}
		return out[i].Project < out[j].Project
	})
	return out
}

// Parse reads a day file. It never fails: unknown lines are ignored and
// invalid frontmatter is treated as body.
func Parse(content string) *Day {
	fm, body := splitFrontmatter(content)
	day := &Day{}
	if fm != nil {
		day.Date = stringField(fm, "date")
		day.Title = stringField(fm, "title")
	}
	for _, line := range strings.Split(body, "\n") {
		m := entryRe.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}
		start, ok1 := clock(m[1], m[2])
		end, ok2 := clock(m[3], m[4])
		if !ok1 || !ok2 {
			day.Skipped++
			continue
		}
		project, desc := splitProject(m[5])
		day.Entries = append(day.Entries, Entry{
			Start:       start,
			End:         end,
			Project:     project,
			Description: desc,
		})
	}
	return day
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without a closing delimiter, or with invalid YAML, the
// whole content is body.
func splitFrontmatter(content string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\r\n")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, content
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, content
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return nil, content
	}
	body := strings.TrimLeft(rest[idx+1+len(delim):], "\r\n")
	return fm, body
}

func stringField(fm map[string]any, key string) string {
	switch v := fm[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.Format(time.DateOnly)
	case nil:
		return ""
	default:
		return strings.TrimSpace(yamlScalar(v))
	}
}

func yamlScalar(v any) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(string(out), "\n")
}

func clock(h, m string) (time.Duration, bool) {
	hh, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	if hh > 24 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, false
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, true
}

func splitProject(rest string) (string, string) {
	rest = strings.TrimSpace(rest)
	if i := strings.Index(rest, ":"); i > 0 && !strings.ContainsAny(rest[:i], " \t") {
		return rest[:i], strings.TrimSpace(rest[i+1:])
	}
	return NoProject, rest
}
