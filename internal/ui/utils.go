package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/cyhsu/AgriGeoSpatial/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// Output is where the Print helpers write.
var Output io.Writer = os.Stdout

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Fprintf(Output, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(Output, "%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Fprintf(Output, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Fprintf(Output, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Fprintf(Output, "%s%s%s\n", ColorBlue, message, ColorReset)
}

// PrintSummary lists key/value pairs in key order.
func PrintSummary(title string, values map[string]any) {
	fmt.Fprintf(Output, "%s\n%s:%s\n", ColorGreen, title, ColorReset)
	for _, k := range utils.SortedKeys(values, true) {
		fmt.Fprintf(Output, "%s  %-12s %v%s\n", ColorGreen, k, values[k], ColorReset)
	}
}

// NewProgressBar returns a bar over n steps, or a silent one when show is false.
func NewProgressBar(n int, description string, show bool) *progressbar.ProgressBar {
	if !show {
		return progressbar.DefaultSilent(int64(n), description)
	}
	return progressbar.Default(int64(n), description)
}
