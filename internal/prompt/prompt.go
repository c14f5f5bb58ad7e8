package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter abstracts user confirmation and free-form input so the resolver
// and merger can run against a terminal, a scripted test double, or a
// future UI.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(question string) bool
	// Input asks for a single line of text, trimmed.
	Input(question string) string
}

// AutoDecline answers no to every confirmation and returns empty input.
// Unattended runs use it so nothing blocks waiting for a human; unresolved
// titles are simply retried on the next interactive run.
type AutoDecline struct{}

// Confirm always answers no.
func (AutoDecline) Confirm(string) bool { return false }

// Input always returns an empty answer.
func (AutoDecline) Input(string) string { return "" }

// Console is a Prompter reading answers from an input stream, normally stdin.
type Console struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewConsole creates a Prompter bound to stdin/stdout.
func NewConsole() *Console {
	return &Console{
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// NewConsoleFrom creates a Prompter over arbitrary streams.
func NewConsoleFrom(in io.Reader, out io.Writer) *Console {
	return &Console{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Confirm asks a yes/no question; empty input and anything starting with
// "y" count as yes.
func (c *Console) Confirm(question string) bool {
	fmt.Fprintf(c.out, "%s [Y/n]: ", question)

	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || strings.HasPrefix(answer, "y")
}

// Input asks for one line of text.
func (c *Console) Input(question string) string {
	fmt.Fprintf(c.out, "%s: ", question)

	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}

	return strings.TrimSpace(line)
}
