// Package output prints render summaries. Values are never printed, only
// token names and counts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/torosent/tokenfill/internal/render"
)

// Summary is the reportable view of one render.
type Summary struct {
	Profile string `json:"profile"`
	render.Result
	Replacements int `json:"replaced"`
}

// NewSummary builds a Summary from a render result.
func NewSummary(profile string, result render.Result) Summary {
	return Summary{
		Profile:      profile,
		Result:       result,
		Replacements: result.Replaced(),
	}
}

// PrintReport outputs a human-readable summary.
func PrintReport(w io.Writer, s Summary) {
	fmt.Fprintln(w, "--- Render Summary ---")
	fmt.Fprintf(w, "Template:          %s\n", s.Path)
	fmt.Fprintf(w, "Profile:           %s\n", s.Profile)
	fmt.Fprintf(w, "Replacements:      %d\n", s.Replacements)
	fmt.Fprintf(w, "Bytes:             %d\n", s.Bytes)
	fmt.Fprintf(w, "Written:           %t\n", s.Written)
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration)
	if s.BackupPath != "" {
		fmt.Fprintf(w, "Backup:            %s\n", s.BackupPath)
	}

	if len(s.Counts) > 0 {
		fmt.Fprintln(w, "\nTokens:")
		for _, c := range s.Counts {
			fmt.Fprintf(w, "  %-24s %d\n", c.Token, c.Count)
		}
	}

	if len(s.Residual) > 0 {
		fmt.Fprintf(w, "\nUnreplaced:        %s\n", strings.Join(s.Residual, ", "))
	}
}

// PrintJSONReport outputs a JSON-formatted summary.
func PrintJSONReport(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
