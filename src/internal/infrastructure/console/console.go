// Package console prints operator-facing output for gameops tasks.
// It is separate from the logger, which records what the tool did.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	mu     sync.Mutex
	output io.Writer

	stepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	detailStyle  = lipgloss.NewStyle().Faint(true).PaddingLeft(2)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// SetOutput redirects console output. nil restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if output == nil {
		return os.Stdout
	}
	return output
}

// Print outputs to stdout for CLI interactions.
func Print(a ...interface{}) {
	_, _ = fmt.Fprint(writer(), a...)
}

// Println outputs to stdout with newline.
func Println(a ...interface{}) {
	_, _ = fmt.Fprintln(writer(), a...)
}

// Printf outputs formatted text to stdout.
func Printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(writer(), format, a...)
}

// Step announces the start of a task step.
func Step(format string, a ...interface{}) {
	Println(stepStyle.Render("==> " + fmt.Sprintf(format, a...)))
}

// Detail prints an indented line under the current step.
func Detail(format string, a ...interface{}) {
	Println(detailStyle.Render(fmt.Sprintf(format, a...)))
}

// Success reports a finished task.
func Success(format string, a ...interface{}) {
	Println(successStyle.Render("✓ " + fmt.Sprintf(format, a...)))
}

// Warn reports a non-fatal problem.
func Warn(format string, a ...interface{}) {
	Println(warnStyle.Render("! " + fmt.Sprintf(format, a...)))
}

// Failure reports the error that ended a task, with the failing output indented below it.
func Failure(err error, output string) {
	Println(errorStyle.Render("✗ " + err.Error()))
	if out := strings.TrimSpace(output); out != "" {
		for _, line := range strings.Split(out, "\n") {
			Println(detailStyle.Render(line))
		}
	}
}
