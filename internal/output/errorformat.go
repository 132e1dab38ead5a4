package output

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// formatErrorText prints a dterrors.Error (or any error) to the error
// writer with category badge, cause chain, details, and hint.
func formatErrorText(err error) {
	w := ErrWriter()
	dtErr, ok := dterrors.As(err)
	if !ok {
		fmt.Fprintf(w, "%s %s\n", pterm.FgRed.Sprint(Symbols.Error), err.Error())
		return
	}
	fmt.Fprint(w, formatDockertreeError(dtErr))
}

func formatDockertreeError(e *dterrors.Error) string {
	var sb strings.Builder

	badge := pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold).
		Sprintf(" %s ", strings.ToUpper(string(e.Category)))
	sb.WriteString(badge)
	sb.WriteString(" ")
	sb.WriteString(pterm.FgRed.Sprint(e.Message))
	sb.WriteString("\n")

	if e.Cause != nil {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgBlue.Sprint("Cause"))
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
		sb.WriteString("\n")
	}

	if len(e.Details) > 0 {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgBlue.Sprint("Details"))
		sb.WriteString(":\n")
		for k, v := range e.Details {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", pterm.FgGray.Sprint(k), v))
		}
	}

	if e.Hint != "" {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgCyan.Sprint(Symbols.Info))
		sb.WriteString(" ")
		sb.WriteString(pterm.FgGray.Sprint(e.Hint))
		sb.WriteString("\n")
	}

	return sb.String()
}
