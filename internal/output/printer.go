package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Printer writes case progress lines and the final summary.
// It is safe for concurrent use.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	scheme  *ColorScheme
	noColor bool
}

// NewPrinter creates a printer writing to w. Color is used only when w is a
// terminal and noColor is false.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	color := ShouldColor(w, noColor)
	scheme := DefaultColorScheme()
	if !color {
		scheme = NoColorScheme()
	}
	return &Printer{w: w, scheme: scheme, noColor: !color}
}

// CaseStarted prints the header of a case.
func (p *Printer) CaseStarted(title string) {
	p.printf("%s\n", p.scheme.Case.Sprintf("%s - EXEC", title))
}

// CasePassed prints a passing case.
func (p *Printer) CasePassed(title string, d time.Duration) {
	p.printf("%s %s %s\n", SuccessIcon(p.noColor), p.scheme.Pass.Sprint(title), formatDuration(d))
}

// CaseFailed prints a failing case with its error indented below.
func (p *Printer) CaseFailed(title string, d time.Duration, err error) {
	p.printf("%s %s %s\n", ErrorIcon(p.noColor), p.scheme.Fail.Sprint(title), formatDuration(d))
	if err == nil {
		return
	}
	for _, line := range strings.Split(err.Error(), "\n") {
		p.printf("    %s\n", p.scheme.Detail.Sprint(strings.TrimRight(line, " ")))
	}
}

// Summary prints the totals of a run.
func (p *Printer) Summary(passed, failed int, d time.Duration) {
	status := p.scheme.Pass.Sprint("PASSED")
	if failed > 0 {
		status = p.scheme.Fail.Sprint("FAILED")
	}
	p.printf("\n%s %s: %d passed, %d failed, %d total in %s\n",
		p.scheme.Summary.Sprint("Cases"), status, passed, failed, passed+failed, formatDuration(d))
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("(%dµs)", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("(%dms)", d.Milliseconds())
	default:
		return fmt.Sprintf("(%.2fs)", d.Seconds())
	}
}
