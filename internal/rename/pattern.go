// Package rename compiles user rename patterns such as "%1 - S%2:00E%3:00 - %4"
// into file names.
//
// A placeholder is a percent sign followed by a decimal index, optionally
// followed by a colon and a number format made of '0' and '#' characters.
// Anything else in a pattern is literal text.
package rename

import (
	"strconv"
	"strings"
)

// Segment is one piece of a compiled pattern: literal text or a placeholder.
type Segment struct {
	Literal     string
	Placeholder *Placeholder
}

// Placeholder is a parsed %<n>[:<format>] token.
type Placeholder struct {
	// Index is the placeholder number, or -1 when the digits are not a
	// canonical decimal (leading zero, overflow) and can never match.
	Index  int
	Format string
	Raw    string
}

// Pattern is a tokenized rename pattern, safe for concurrent use.
type Pattern struct {
	source   string
	segments []Segment
}

// Resolver returns the replacement text for a placeholder, or false to keep
// the placeholder text as written.
type Resolver func(Placeholder) (string, bool)

// Compile tokenizes pattern once so it can be rendered for many files.
func Compile(pattern string) Pattern {
	var segments []Segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, Segment{Literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		if pattern[i] != '%' {
			lit.WriteByte(pattern[i])
			i++
			continue
		}

		j := i + 1
		for j < len(pattern) && isDigit(pattern[j]) {
			j++
		}
		if j == i+1 {
			// Bare percent sign
			lit.WriteByte('%')
			i++
			continue
		}
		digits := pattern[i+1 : j]

		format := ""
		end := j
		if j < len(pattern) && pattern[j] == ':' {
			k := j + 1
			for k < len(pattern) && isFormatChar(pattern[k]) {
				k++
			}
			if k > j+1 {
				format = pattern[j+1 : k]
				end = k
			}
		}

		flush()
		segments = append(segments, Segment{Placeholder: &Placeholder{
			Index:  parseIndex(digits),
			Format: format,
			Raw:    pattern[i:end],
		}})
		i = end
	}
	flush()

	return Pattern{source: pattern, segments: segments}
}

// String returns the pattern source.
func (p Pattern) String() string { return p.source }

// Segments returns the compiled segments in order.
func (p Pattern) Segments() []Segment { return p.segments }

// Render substitutes every placeholder using resolve.
func (p Pattern) Render(resolve Resolver) string {
	var b strings.Builder
	b.Grow(len(p.source))
	for _, seg := range p.segments {
		if seg.Placeholder == nil {
			b.WriteString(seg.Literal)
			continue
		}
		if resolve != nil {
			if s, ok := resolve(*seg.Placeholder); ok {
				b.WriteString(s)
				continue
			}
		}
		b.WriteString(seg.Placeholder.Raw)
	}
	return b.String()
}

func parseIndex(digits string) int {
	if len(digits) > 1 && digits[0] == '0' {
		return -1
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isFormatChar(c byte) bool { return c == '0' || c == '#' }
