package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestColorSchemes(t *testing.T) {
	for name, scheme := range map[string]*ColorScheme{
		"default":  DefaultColorScheme(),
		"no color": NoColorScheme(),
	} {
		if scheme.Case == nil || scheme.Pass == nil || scheme.Fail == nil || scheme.Detail == nil {
			t.Errorf("%s scheme has nil colors", name)
		}
	}
}

func TestPrinter_NonTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.CaseStarted("[ #1 ][ I(1) ] - login")
	p.CasePassed("[ #1 ][ I(1) ] - login", 12*time.Millisecond)

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no escape codes, got %q", out)
	}
	if !strings.Contains(out, "[ #1 ][ I(1) ] - login - EXEC") {
		t.Errorf("missing case header in %q", out)
	}
	if !strings.Contains(out, "✓ [ #1 ][ I(1) ] - login (12ms)") {
		t.Errorf("missing pass line in %q", out)
	}
}

func TestPrinter_CaseFailedIndentsError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.CaseFailed("case", 2*time.Second, errors.New("some instances failed to execute (1):\n  instance #3: scenario failed: boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "✗ case (2.00s)" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "      instance #3: scenario failed: boom" {
		t.Errorf("unexpected detail %q", lines[2])
	}
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Summary(2, 1, 500*time.Microsecond)

	want := "Cases FAILED: 2 passed, 1 failed, 3 total in (500µs)"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("expected %q in %q", want, buf.String())
	}
}

func TestShouldColor(t *testing.T) {
	var buf bytes.Buffer
	if ShouldColor(&buf, false) {
		t.Error("a buffer is not a terminal")
	}
	if ShouldColor(&buf, true) {
		t.Error("noColor must disable color")
	}
}
