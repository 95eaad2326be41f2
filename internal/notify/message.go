package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantfold/earnscan/internal/screener"
)

// FormatResultsMessage creates a notification body for a screening run.
func FormatResultsMessage(result *screener.BatchResult, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Screened: %d symbols\n", result.Total))
	sb.WriteString(fmt.Sprintf("Passed: %d\n", result.Passed))
	sb.WriteString(fmt.Sprintf("Rejected: %d\n", result.Rejected))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	var passing []string
	for _, r := range result.Results {
		if !r.Passes() {
			continue
		}
		if r.ExpectedMove != "" {
			passing = append(passing, fmt.Sprintf("%s (move %s)", r.Symbol, r.ExpectedMove))
		} else {
			passing = append(passing, r.Symbol)
		}
	}
	if len(passing) > 0 {
		sb.WriteString("\n\nPassing:\n")
		for _, p := range passing {
			sb.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}

	// Include first 3 error messages if available
	if len(result.Errors) > 0 {
		sb.WriteString("\n\nErrors:\n")
		limit := 3
		if len(result.Errors) < limit {
			limit = len(result.Errors)
		}
		for i := 0; i < limit; i++ {
			sb.WriteString(fmt.Sprintf("- %s\n", result.Errors[i]))
		}
		if len(result.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("... and %d more errors", len(result.Errors)-3))
		}
	}

	return sb.String()
}
