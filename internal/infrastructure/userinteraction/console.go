package userinteraction

import (
	"fmt"
	"io"
	"os"
	"strings"

	"browser-query/internal/domain/entity"

	"github.com/fatih/color"
)

// Console prints query results for a terminal user.
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

func (u *Console) ShowQuery(description string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "━━━ %s ━━━\n", description)
}

func (u *Console) ShowElements(elements []entity.ElementInfo) {
	if len(elements) == 0 {
		dim := color.New(color.Faint)
		dim.Fprintln(u.out, "   (no elements)")
		return
	}

	for _, el := range elements {
		marker := color.GreenString("●")
		if !el.Visible {
			marker = color.New(color.Faint).Sprint("○")
		}
		fmt.Fprintf(u.out, "%s [%d] %s\n", marker, el.Index, truncate(oneLine(el.Text), 100))
	}
}

func (u *Console) ShowResult(ok bool, summary string) {
	if !ok {
		red := color.New(color.FgRed)
		red.Fprintf(u.out, "✗ %s\n", summary)
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(u.out, "✓ %s\n", summary)
}

func (u *Console) ShowError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(u.out, "Error: ")

	dim := color.New(color.Faint)
	dim.Fprintln(u.out, truncate(err.Error(), 500))
}

func (u *Console) ShowNote(format string, args ...any) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(u.out, format+"\n", args...)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
