package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func askOnce(t *testing.T, input string, q Question) string {
	t.Helper()
	var out bytes.Buffer
	src := newTerminalAnswerSource(strings.NewReader(input), &out)
	answer, err := src.Ask(q)
	require.NoError(t, err)
	return answer
}

func TestAskNumericSelection(t *testing.T) {
	q := Question{Text: "Hardware or supplies?", Options: []string{"hardware", "supplies"}}
	require.Equal(t, "supplies", askOnce(t, "2\n", q))
	require.Equal(t, "hardware", askOnce(t, "1\n", q))
}

func TestAskFreeText(t *testing.T) {
	q := Question{Text: "Hardware or supplies?", Options: []string{"hardware", "supplies"}}
	require.Equal(t, "it was a rental fee", askOnce(t, "it was a rental fee\n", q))
	// Out-of-range numbers are taken literally.
	require.Equal(t, "7", askOnce(t, "7\n", q))
}

func TestAskRepromptsOnBlank(t *testing.T) {
	q := Question{Text: "Hardware or supplies?", Options: []string{"hardware", "supplies"}}
	require.Equal(t, "hardware", askOnce(t, "\n   \n1\n", q))
}

func TestAskFailsOnClosedInput(t *testing.T) {
	var out bytes.Buffer
	src := newTerminalAnswerSource(strings.NewReader(""), &out)
	_, err := src.Ask(Question{Text: "anyone there?"})
	require.Error(t, err)
}
