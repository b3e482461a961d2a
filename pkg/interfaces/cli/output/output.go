package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/vsinha/stockroom/pkg/infrastructure/spreadsheet"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	// OutputDir, when set, receives a file named after the report instead of w
	OutputDir string
	NoColor   bool
	Verbose   bool
}

// Report is a tabular result that can be printed in any output format
type Report struct {
	Name    string
	Title   string
	Header  []string
	Rows    [][]string
	Summary []string
	// Data is what the json format encodes
	Data interface{}
}

// Generate writes report in the configured format
func Generate(w io.Writer, report *Report, config Config) error {
	if config.OutputDir != "" {
		return generateFile(report, config)
	}
	switch config.Format {
	case "", "text":
		return generateTextOutput(w, report, config)
	case "json":
		return generateJSONOutput(w, report)
	case "csv":
		return spreadsheet.WriteCSV(w, report.Header, report.Rows)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateFile(report *Report, config Config) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	ext := config.Format
	if ext == "" || ext == "text" {
		ext = "txt"
	}
	filename := filepath.Join(config.OutputDir, report.Name+"."+ext)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	fileConfig := config
	fileConfig.OutputDir = ""
	fileConfig.NoColor = true
	if err := Generate(f, report, fileConfig); err != nil {
		return err
	}
	if config.Verbose {
		fmt.Printf("Results saved to: %s\n", filename)
	}
	return nil
}

// generateTextOutput creates a human-readable table
func generateTextOutput(w io.Writer, report *Report, config Config) error {
	title := color.New(color.FgCyan, color.Bold)
	if config.NoColor {
		title.DisableColor()
	}
	title.Fprintln(w, report.Title)
	fmt.Fprintln(w, strings.Repeat("=", len(report.Title)))
	fmt.Fprintln(w)

	if len(report.Rows) == 0 {
		fmt.Fprintln(w, "Nothing to show.")
	} else {
		renderTable(w, report.Header, report.Rows, config.NoColor)
	}

	if len(report.Summary) > 0 {
		fmt.Fprintln(w)
		for _, line := range report.Summary {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func renderTable(w io.Writer, header []string, rows [][]string, noColor bool) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold)
	if noColor {
		bold.DisableColor()
	}
	for i, h := range header {
		bold.Fprint(w, padRight(h, widths[i]))
		if i < len(header)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
	for i := range header {
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
		if i < len(header)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprint(w, padRight(cell, widths[i]))
			if i < len(header)-1 {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// generateJSONOutput encodes the report data, falling back to the rows
func generateJSONOutput(w io.Writer, report *Report) error {
	data := report.Data
	if data == nil {
		data = report.Rows
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
