package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/postoffice/internal/config"
	"github.com/Iron-Ham/postoffice/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the postoffice log file",
	Long: `View and filter the log file configured by logging.file.

Examples:
  # Show the last 50 records
  postoffice logs

  # Only warnings and errors from the loader
  postoffice logs --level warn --grep loader

  # Show records from the last hour
  postoffice logs --since 1h`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntP("tail", "n", 50, "Number of records to show (0 for all)")
	logsCmd.Flags().String("level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().String("since", "", "Show records since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().String("grep", "", "Filter records matching pattern (regex)")
}

// logEntry is one JSON record written by the logging package
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	Module    string         `json:"module,omitempty"`
	Extra     map[string]any `json:"-"`
}

// UnmarshalJSON keeps fields other than the known ones in Extra
func (e *logEntry) UnmarshalJSON(data []byte) error {
	type alias logEntry
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{"time", "level", "msg", "component", "module"} {
		delete(all, known)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter selects which records are shown
type logFilter struct {
	minLevel int
	since    time.Time
	grep     *regexp.Regexp
}

func (f logFilter) match(e *logEntry, raw string) bool {
	if levelPriority(e.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && e.Time.Before(f.since) {
		return false
	}
	if f.grep != nil && !f.grep.MatchString(raw) {
		return false
	}
	return true
}

// levelPriority orders levels for filtering; unknown levels sort first
func levelPriority(level string) int {
	return slices.Index(logging.ValidLevels(), strings.ToUpper(level))
}

var levelStyles = map[string]lipgloss.Style{
	logging.LevelDebug: lipgloss.NewStyle().Foreground(mutedColor),
	logging.LevelInfo:  lipgloss.NewStyle().Foreground(primaryColor),
	logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
	logging.LevelError: lipgloss.NewStyle().Foreground(errorColor).Bold(true),
}

// formatLogEntry renders a record on one line
func formatLogEntry(e *logEntry, p palette) string {
	var sb strings.Builder

	sb.WriteString(p.detail.Render("[" + e.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")

	level := "[" + strings.ToUpper(e.Level) + "]"
	if style, ok := levelStyles[strings.ToUpper(e.Level)]; ok && p.color {
		level = style.Render(level)
	}
	sb.WriteString(level)
	sb.WriteString(" ")
	sb.WriteString(e.Msg)

	if e.Component != "" {
		sb.WriteString(" " + p.kind.Render("component=") + e.Component)
	}
	if e.Module != "" {
		sb.WriteString(" " + p.kind.Render("module=") + e.Module)
	}
	for _, key := range slices.Sorted(maps.Keys(e.Extra)) {
		sb.WriteString(" " + p.kind.Render(key+"=") + fmt.Sprintf("%v", e.Extra[key]))
	}
	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	tail, _ := cmd.Flags().GetInt("tail")
	level, _ := cmd.Flags().GetString("level")
	since, _ := cmd.Flags().GetString("since")
	grep, _ := cmd.Flags().GetString("grep")

	// An invalid config falls back to defaults instead of failing.
	cfg := config.Get()
	out := cmd.OutOrStdout()

	if cfg.Logging.File == "" {
		fmt.Fprintln(out, "Logging to stderr; set logging.file to keep a log file.")
		return nil
	}
	if _, err := os.Stat(cfg.Logging.File); os.IsNotExist(err) {
		fmt.Fprintf(out, "No log file at %s\n", cfg.Logging.File)
		return nil
	}

	filter := logFilter{minLevel: -1}
	if level != "" {
		filter.minLevel = levelPriority(level)
		if filter.minLevel < 0 {
			return fmt.Errorf("invalid level %q: must be one of debug, info, warn, error", level)
		}
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.since = time.Now().Add(-d)
	}
	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
		filter.grep = re
	}

	file, err := os.Open(cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return displayLogs(out, file, tail, filter)
}

// displayLogs writes the last tail matching records of r to w.
// Lines that are not JSON records are skipped.
func displayLogs(w io.Writer, r io.Reader, tail int, filter logFilter) error {
	p := paletteFor(w)

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()
		if raw == "" {
			continue
		}
		var entry logEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if !filter.match(&entry, raw) {
			continue
		}
		lines = append(lines, formatLogEntry(&entry, p))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}
