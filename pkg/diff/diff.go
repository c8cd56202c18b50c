// Package diff renders readable test failure diffs.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Lines diffs two multi-line strings. An empty result means they are equal.
func Lines(want, got string) string {
	d := diff.Diff(got, want)
	if d == "" {
		return ""
	}
	return format(d)
}

// ExportedOnly pretty prints want and got, ignoring unexported fields, and
// diffs the output.
func ExportedOnly[T any](want, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	return Lines(printer.Sprint(want), printer.Sprint(got))
}

func format(d string) string {
	var sb strings.Builder
	sb.WriteString("\n\nto convert ACTUAL ⏩️ EXPECTED:\n\n")
	sb.WriteString("add:    ➕\n")
	sb.WriteString("remove: ➖\n\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(d, "\n-", "\n➖"), "\n+", "\n➕"))
	return sb.String()
}
