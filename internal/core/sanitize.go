package core

import (
	"runtime"
	"strings"
)

// portableFilenameChars are rejected by NTFS/FAT even when the host filesystem
// accepts them.
const portableFilenameChars = "<>:\"/\\|?*"

// Charset is the set of characters stripped from generated file names.
// Build it once per run with NewCharset and share it between workers.
type Charset struct {
	chars string
}

// NewCharset returns the host's reserved filename characters, unioned with the
// portable set when windowsSafe is requested.
func NewCharset(windowsSafe bool) Charset {
	return newCharset(runtime.GOOS, windowsSafe)
}

func newCharset(goos string, windowsSafe bool) Charset {
	var b strings.Builder
	add := func(r rune) {
		if !strings.ContainsRune(b.String(), r) {
			b.WriteRune(r)
		}
	}

	if goos == "windows" {
		for r := rune(0); r < 32; r++ {
			add(r)
		}
		for _, r := range portableFilenameChars {
			add(r)
		}
	} else {
		add(0)
		add('/')
	}

	if windowsSafe {
		for _, r := range portableFilenameChars {
			add(r)
		}
	}

	return Charset{chars: b.String()}
}

// Contains reports whether r is stripped by the charset.
func (c Charset) Contains(r rune) bool {
	return strings.ContainsRune(c.chars, r)
}

// String returns the characters in the set.
func (c Charset) String() string { return c.chars }

// sanitizeFilename removes every character of the set from name. The warn
// result is true when characters were removed and the cleaned name is not the
// file's current base name, so a pattern that reproduces the existing name
// stays quiet.
func sanitizeFilename(name, current string, set Charset) (string, bool) {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		if set.Contains(r) {
			continue
		}
		b.WriteRune(r)
	}

	result := b.String()
	warn := len(result) != len(name) && result != current
	return result, warn
}
