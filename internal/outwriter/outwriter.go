// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/lambentLogic/spectrum/internal/contract"
	"golang.org/x/term"
)

// Table layout constants for width budgeting.
const (
	minNameWidth     = 24
	fixedColumnWidth = 40 // rank + type + score columns plus separators
	fallbackWidth    = 120
)

// GetMaxTableNameWidth calculates the maximum width for tensor names in table
// output based on terminal width and table configuration.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	termWidth := cfg.Width

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			detectedWidth = fallbackWidth
		}
		termWidth = detectedWidth
	}

	nameWidth := termWidth - fixedColumnWidth
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}
	return nameWidth
}

// truncateName shortens a dotted tensor name from the left, keeping the
// discriminating trailing segments visible.
func truncateName(name string, maxWidth int) string {
	if len(name) <= maxWidth || maxWidth < 4 {
		return name
	}
	return "..." + name[len(name)-(maxWidth-3):]
}
