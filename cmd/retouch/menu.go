package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	backendOpenAI = "openai"
	backendGemini = "gemini"
)

// parseBackendChoice maps a menu answer to a backend name. It accepts the
// menu number, the backend name, or an unambiguous prefix of it.
func parseBackendChoice(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "1":
		return backendOpenAI, true
	case "2":
		return backendGemini, true
	case "":
		return "", false
	}

	match := ""
	for _, name := range []string{backendOpenAI, backendGemini} {
		if strings.HasPrefix(name, s) {
			if match != "" {
				return "", false
			}
			match = name
		}
	}
	return match, match != ""
}

// parseLimitChoice maps a menu answer to a batch limit. Empty means no
// limit.
func parseLimitChoice(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// chooseBackend runs the interactive backend menu, re-prompting until the
// answer is valid. The scanner must be shared across prompts; a scanner
// reads ahead of the line it returns, so a second scanner on the same
// input would lose buffered answers.
func chooseBackend(scanner *bufio.Scanner, out io.Writer) (string, error) {
	for {
		fmt.Fprintln(out, "Select a backend:")
		fmt.Fprintln(out, "  1) OpenAI  (gpt-image)")
		fmt.Fprintln(out, "  2) Gemini  (gemini flash image)")
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if backend, ok := parseBackendChoice(scanner.Text()); ok {
			return backend, nil
		}
		fmt.Fprintln(out, "Please enter 1 or 2.")
	}
}

// chooseLimit prompts for an optional batch limit. Empty input means the
// whole catalog.
func chooseLimit(scanner *bufio.Scanner, out io.Writer) (int, error) {
	for {
		fmt.Fprint(out, "Batch limit (empty for all): ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, nil
		}
		if limit, ok := parseLimitChoice(scanner.Text()); ok {
			return limit, nil
		}
		fmt.Fprintln(out, "Please enter a non-negative number or leave empty.")
	}
}
