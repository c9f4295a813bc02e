package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// AnswerSource supplies the human answer to a clarifying question. The
// terminal implementation blocks; tests script it.
type AnswerSource interface {
	Ask(q Question) (string, error)
}

type terminalAnswerSource struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalAnswerSource(in io.Reader, out io.Writer) *terminalAnswerSource {
	return &terminalAnswerSource{in: bufio.NewReader(in), out: out}
}

// Ask renders the question with its numbered options and accepts either a
// 1-based numeric selection or free text.
func (t *terminalAnswerSource) Ask(q Question) (string, error) {
	fmt.Fprintln(t.out)
	color.New(color.BgCyan, color.FgBlack).Fprintf(t.out, " ? %s ", q.Text)
	fmt.Fprintln(t.out)
	for i, opt := range q.Options {
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, opt)
	}

	for {
		fmt.Fprint(t.out, "Answer (number or free text): ")
		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			return "", errors.Wrap(err, "unable to read answer")
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			continue
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(q.Options) {
			return q.Options[n-1], nil
		}
		return answer, nil
	}
}
