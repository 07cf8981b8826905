package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features are size measures of a piece of text, used for telemetry only.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures measures s. Words split on Unicode whitespace; an empty
// string has zero lines.
func CountFeatures(s string) Features {
	f := Features{Bytes: len(s), Runes: utf8.RuneCountInString(s), Words: len(strings.Fields(s))}
	if s != "" {
		f.Lines = strings.Count(s, "\n") + 1
	}
	return f
}

// Add sums two measurements field by field.
func (f Features) Add(o Features) Features {
	f.Bytes += o.Bytes
	f.Runes += o.Runes
	f.Words += o.Words
	f.Lines += o.Lines
	return f
}
