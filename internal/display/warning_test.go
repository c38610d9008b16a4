package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisplayWarning_TitleOnly(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithColor(&buf, false)

	p.Warn(Warning{Title: "Configuration Missing"})

	if got, want := buf.String(), "Warning: Configuration Missing\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDisplayWarning_WithFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantText string
	}{
		{
			name:     "single file",
			files:    []string{"src/app.py"},
			wantText: "Affected file:",
		},
		{
			name:     "multiple files",
			files:    []string{"src/app.py", "src/flags.py", "web/index.ts"},
			wantText: "Affected files:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPrinterWithColor(&buf, false)

			p.Warn(Warning{Title: "Unreadable files", Files: tt.files})

			output := buf.String()
			if !strings.Contains(output, tt.wantText) {
				t.Errorf("Expected %q in output, got: %s", tt.wantText, output)
			}
			for i, file := range tt.files {
				expected := strings.Repeat(" ", 6) + string(rune('1'+i)) + ". " + file
				if !strings.Contains(output, expected) {
					t.Errorf("Expected file entry %q in output, got: %s", expected, output)
				}
			}
		})
	}
}

func TestDisplayWarning_Complete(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithColor(&buf, false)

	p.Warn(Warning{
		Title:      "2 file(s) could not be scanned",
		Message:    "They were excluded from the report",
		Files:      []string{"a.bin"},
		Suggestion: "Run with --verbose to see why",
	})

	want := "Warning: 2 file(s) could not be scanned\n" +
		"    They were excluded from the report\n" +
		"    Affected file:\n" +
		"      1. a.bin\n" +
		"    Suggestion:\n" +
		"    Run with --verbose to see why\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestDisplayWarning_Colored(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithColor(&buf, true)

	p.Warn(Warning{Title: "Deprecated"})

	output := buf.String()
	if !strings.Contains(output, "\x1b[33m") {
		t.Error("Expected yellow ANSI color code in output")
	}
	if !strings.Contains(output, "\x1b[0m") {
		t.Error("Expected ANSI reset code in output")
	}
}
