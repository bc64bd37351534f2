package runtimeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrInputUnavailable = errors.New("input is not available in non-interactive mode")

// Sinks names the accepted echo destinations.
var Sinks = []string{"stdout", "stderr", "discard"}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Sink maps an echo destination name to a writer. "" means stdout.
func Sink(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}
	return nil, fmt.Errorf("unknown echo sink %q (want one of %s)", name, strings.Join(Sinks, ", "))
}

// Input reads one line from stdin after printing prompt.
func Input(prompt string) (string, error) {
	if !IsInteractive() {
		return "", ErrInputUnavailable
	}
	if prompt != "" {
		_, _ = fmt.Fprint(os.Stdout, prompt)
	}
	line, err := ReadLine(os.Stdin)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputUnavailable
		}
		return "", err
	}
	return line, nil
}

// ReadLine reads up to and excluding the next newline.
func ReadLine(r io.Reader) (string, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
