// Package command builds external process invocations as typed argv lists.
//
// Commands are never assembled by string interpolation. Arguments stay separate
// until they reach exec.Command, or are single-quoted by Shell when they must
// travel as one line over an SSH session.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-shellwords"
)

const redacted = "[REDACTED]"

var unitNamePattern = regexp.MustCompile(`^[A-Za-z0-9@._:-]+$`)

// Arg is one argument. Secret arguments never appear in String or Shell output meant for display.
type Arg struct {
	Value  string
	secret bool
}

// Secret marks v as sensitive.
func Secret(v string) Arg { return Arg{Value: v, secret: true} }

// Command is a program name plus its arguments.
type Command struct {
	Name string
	Args []Arg
	// Stdin, when set, is written to the process standard input.
	Stdin []byte
}

// New builds a command from plain string arguments.
func New(name string, args ...string) Command {
	c := Command{Name: name}
	for _, a := range args {
		c.Args = append(c.Args, Arg{Value: a})
	}
	return c
}

// With appends arguments, which may be secret.
func (c Command) With(args ...Arg) Command {
	out := c
	out.Args = append(append([]Arg{}, c.Args...), args...)
	return out
}

// WithStdin returns a copy of c that feeds data to standard input.
func (c Command) WithStdin(data []byte) Command {
	out := c
	out.Stdin = data
	return out
}

// Prefix returns a command that runs c through another program, e.g. sudo.
func (c Command) Prefix(name string, args ...string) Command {
	out := New(name, args...)
	out.Args = append(out.Args, Arg{Value: c.Name})
	out.Args = append(out.Args, c.Args...)
	out.Stdin = c.Stdin
	return out
}

// Argv returns the plaintext arguments for exec.Command.
func (c Command) Argv() []string {
	argv := make([]string, len(c.Args))
	for i, a := range c.Args {
		argv[i] = a.Value
	}
	return argv
}

// Validate rejects commands that cannot be passed safely to a process or a shell.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("command name is empty")
	}
	if strings.ContainsRune(c.Name, 0) {
		return fmt.Errorf("command name %q contains a NUL byte", c.Name)
	}
	for i, a := range c.Args {
		if strings.ContainsRune(a.Value, 0) {
			return fmt.Errorf("argument %d of %s contains a NUL byte", i, c.Name)
		}
	}
	return nil
}

// String renders the command for logs with secrets redacted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		if a.secret {
			parts = append(parts, redacted)
			continue
		}
		parts = append(parts, quote(a.Value))
	}
	return strings.Join(parts, " ")
}

// Shell renders the command as one POSIX shell line, secrets included.
func (c Command) Shell() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a.Value))
	}
	return strings.Join(parts, " ")
}

// Parse splits an operator-provided command line into a Command.
func Parse(line string) (Command, error) {
	parser := shellwords.NewParser()
	parts, err := parser.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("failed to parse command line: %w", err)
	}
	if len(parts) == 0 {
		return Command{}, errors.New("command line is empty")
	}
	c := New(parts[0], parts[1:]...)
	return c, c.Validate()
}

// ValidateUnit checks a systemd unit name.
func ValidateUnit(name string) error {
	if !unitNamePattern.MatchString(name) {
		return fmt.Errorf("invalid unit name %q", name)
	}
	return nil
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
