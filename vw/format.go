package vw

import (
	"fmt"
	"strconv"
	"strings"

	"vwlab/ml"
)

var nameEscaper = strings.NewReplacer(
	" ", "_",
	"\t", "_",
	"\n", "_",
	"\r", "_",
	"|", "_",
	":", "_",
)

// EscapeName makes a namespace or feature name safe for the text input format,
// where spaces, pipes and colons are separators.
func EscapeName(name string) string {
	return nameEscaper.Replace(name)
}

// FormatExample renders an example as one line of Vowpal Wabbit text input,
// without the trailing newline:
//
//	[label] |<group><namespace> name:value name:value ...
func FormatExample(example ml.Example) string {
	var b strings.Builder
	if example.Label != nil {
		b.WriteString(formatFloat(*example.Label))
		b.WriteByte(' ')
	}
	for i, ns := range example.Namespaces {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('|')
		b.WriteString(EscapeName(ns.Label()))
		for _, f := range ns.Features {
			b.WriteByte(' ')
			b.WriteString(EscapeName(f.Name))
			if f.Value != 1 {
				b.WriteByte(':')
				b.WriteString(formatFloat(f.Value))
			}
		}
	}
	if len(example.Namespaces) == 0 {
		b.WriteByte('|')
	}
	return b.String()
}

// ParsePrediction reads the scalar from one line of prediction output. Anything after
// the first field (a tag) is ignored.
func ParsePrediction(line string) (float64, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty prediction line")
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse prediction %q: %w", line, err)
	}
	return value, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
