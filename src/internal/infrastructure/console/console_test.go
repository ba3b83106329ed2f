package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// captureOutput captures console output during test execution.
func captureOutput(f func()) string {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	f()
	return buf.String()
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name     string
		args     []interface{}
		expected string
	}{
		{
			name:     "single string",
			args:     []interface{}{"hello"},
			expected: "hello",
		},
		{
			name:     "mixed types",
			args:     []interface{}{"count:", 42, " items"},
			expected: "count:42 items",
		},
		{
			name:     "empty args",
			args:     []interface{}{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(func() {
				Print(tt.args...)
			})

			if output != tt.expected {
				t.Errorf("Print() = %q, want %q", output, tt.expected)
			}
		})
	}
}

func TestPrintlnAndPrintf(t *testing.T) {
	output := captureOutput(func() {
		Println("hello", "world")
		Printf("Name: %s, Port: %d", "eco", 3002)
	})

	if output != "hello world\nName: eco, Port: 3002" {
		t.Errorf("output = %q", output)
	}
}

func TestStyledLines(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{"step", func() { Step("Copying %s", "mods") }, "==> Copying mods"},
		{"detail", func() { Detail("%s => %s", "a.cs", "b.cs") }, "a.cs => b.cs"},
		{"success", func() { Success("done") }, "done"},
		{"warn", func() { Warn("namespace exists") }, "namespace exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(tt.fn)
			if !strings.Contains(output, tt.want) {
				t.Errorf("output %q does not contain %q", output, tt.want)
			}
			if !strings.HasSuffix(output, "\n") {
				t.Errorf("output %q should end with a newline", output)
			}
		})
	}
}

func TestFailure(t *testing.T) {
	output := captureOutput(func() {
		Failure(errors.New("clone failed"), "fatal: repository not found\nfatal: exit\n")
	})

	for _, want := range []string{"clone failed", "repository not found", "fatal: exit"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q does not contain %q", output, want)
		}
	}
}
