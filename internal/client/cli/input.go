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

// readPassword is swapped in tests so nothing touches the terminal.
var readPassword = term.ReadPassword

// promptLine writes "label: " to w and returns the next trimmed line.
// A last line without a newline still counts.
func promptLine(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return clean(strings.TrimSpace(line), false), nil
}

// promptSecret reads a value from the terminal without echo. The caller
// wipes the returned slice.
func promptSecret(w io.Writer, label string) ([]byte, error) {
	fmt.Fprintf(w, "%s: ", label)
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return secret, nil
}

// confirm asks a yes/no question. Only "y" or "yes" confirm.
func confirm(r *bufio.Reader, w io.Writer, question string) (bool, error) {
	answer, err := promptLine(r, w, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
