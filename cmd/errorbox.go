package cmd

import (
	"fmt"
	"io"
	"strings"
)

const (
	boxWidth  = 80
	wrapWidth = 74
)

// writeErrorBox prints err inside the framed block shown on every failed run.
func writeErrorBox(w io.Writer, err error) {
	frame := strings.Repeat("=", boxWidth)

	fmt.Fprintln(w, frame)
	fmt.Fprintln(w, "|| ERROR:")
	fmt.Fprintln(w, "||")
	for _, line := range strings.Split(err.Error(), "\n") {
		wrapped := wrapLine(line, wrapWidth)
		if len(wrapped) == 0 {
			fmt.Fprintln(w, "||")
			continue
		}
		for _, part := range wrapped {
			fmt.Fprintln(w, "|| "+part)
		}
	}
	fmt.Fprintln(w, "||")
	fmt.Fprintln(w, frame)
	fmt.Fprintln(w)
}

// wrapLine splits line into chunks of at most width runes, breaking on
// spaces and cutting words longer than width. Leading indentation is
// repeated on every chunk.
func wrapLine(line string, width int) []string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if len(indent) >= width/2 {
		indent = ""
	}
	width -= len(indent)

	var lines []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			lines = append(lines, indent+string(current))
			current = current[:0]
		}
	}

	for _, word := range strings.Fields(line) {
		w := []rune(word)
		for len(w) > width {
			flush()
			lines = append(lines, indent+string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(current) == 0:
			current = append(current, w...)
		case len(current)+1+len(w) <= width:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			flush()
			current = append(current, w...)
		}
	}
	flush()
	return lines
}
