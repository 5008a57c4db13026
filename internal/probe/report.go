package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Report is the outcome of one probe run.
type Report struct {
	RunID     string         `json:"run_id"`
	BaseURL   string         `json:"base_url"`
	Started   time.Time      `json:"started"`
	Duration  time.Duration  `json:"duration"`
	Snapshots int            `json:"snapshots"`
	Topics    map[string]int `json:"topics"`
	Checks    []Result       `json:"checks"`
}

// Failures counts failed observations across every check.
func (r *Report) Failures() int {
	n := 0
	for _, c := range r.Checks {
		n += c.Failed
	}
	return n
}

// Updates counts streamed updates across every topic.
func (r *Report) Updates() int {
	n := 0
	for _, v := range r.Topics {
		n += v
	}
	return n
}

// OK reports whether every check passed.
func (r *Report) OK() bool { return r.Failures() == 0 }

// Render writes a human readable summary.
func (r *Report) Render(w io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s against %s\n", bold("probe"), r.RunID, r.BaseURL)
	fmt.Fprintf(w, "observed %s: %d snapshots, %d updates\n\n", r.Duration.Round(time.Millisecond), r.Snapshots, r.Updates())

	checks := tablewriter.NewWriter(w)
	checks.SetHeader([]string{"Check", "Passed", "Failed", "Status", "Last failure"})
	checks.SetBorder(false)
	checks.SetAlignment(tablewriter.ALIGN_LEFT)
	checks.SetAutoWrapText(false)
	for _, c := range r.Checks {
		checks.Append([]string{c.Name, strconv.Itoa(c.Passed), strconv.Itoa(c.Failed), status(c), c.Last})
	}
	checks.Render()
	fmt.Fprintln(w)

	topics := make([]string, 0, len(r.Topics))
	for t := range r.Topics {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Topic", "Updates"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range topics {
		table.Append([]string{t, strconv.Itoa(r.Topics[t])})
	}
	table.Render()
	fmt.Fprintln(w)

	if r.OK() {
		fmt.Fprintln(w, color.GreenString("all properties held"))
		return
	}
	fmt.Fprintln(w, color.RedString("%d violations", r.Failures()))
}

func status(c Result) string {
	switch {
	case c.Failed > 0:
		return color.RedString("FAIL")
	case c.Passed == 0:
		return color.YellowString("SKIP")
	default:
		return color.GreenString("OK")
	}
}

// WriteFile saves the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
