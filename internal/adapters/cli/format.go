package cli

import (
	"github.com/fatih/color"
)

var statusColors = map[string]*color.Color{
	"pending":     color.New(color.FgYellow),
	"in_progress": color.New(color.FgCyan),
	"completed":   color.New(color.FgBlue),
	"approved":    color.New(color.FgGreen),
	"rejected":    color.New(color.FgRed),
	"created":     color.New(color.FgGreen),
	"failed":      color.New(color.FgRed),
	"none":        color.New(color.FgHiBlack),
}

// colorStatus renders a lifecycle, approval or ledger status. Colour is
// dropped automatically when output is not a terminal.
func colorStatus(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
