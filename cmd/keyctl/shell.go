package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
)

// runShell executes one command per input line over a single connection.
// Blank lines and lines starting with '#' are skipped. The first failing
// line stops the script.
func runShell(c *client, opts options, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		args, err := shlex.Split(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "shell" {
			return fmt.Errorf("line %d: shell cannot be nested", line)
		}
		if err := dispatch(c, opts, args, out); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}
