package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// readLine prints prompt to w and reads one trimmed line. A final line
// without a newline is accepted.
func readLine(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads a password without echo when stdin is a terminal, and as
// a plain line otherwise so scripts can pipe it in.
func (a *App) readSecret(prompt string, w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if a.in != nil || !isTerminal(fd) {
		return readLine(a.input(), prompt, w)
	}
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// promptIfEmpty asks for value on the terminal when a flag left it empty.
func (a *App) promptIfEmpty(value *string, prompt string, w io.Writer) error {
	if strings.TrimSpace(*value) != "" {
		return nil
	}
	line, err := readLine(a.input(), prompt, w)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	*value = line
	return nil
}
