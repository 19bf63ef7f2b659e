package util

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	homedir "github.com/mitchellh/go-homedir"
)

// ReflectToInt converts interface{} to int
func ReflectToInt(iface interface{}) int {
	switch i := iface.(type) {
	case int64:
		return int(i)
	case uint64:
		return int(i)
	case int:
		return i
	case uint:
		return int(i)
	case int8:
		return int(i)
	case uint8:
		return int(i)
	case float64:
		return int(i)
	}
	return 0
}

// SplitVimscript splits Vimscript read as a character string with line breaks and converts it to a list format character string
func SplitVimscript(s string) string {
	s = strings.TrimPrefix(s, "\n")
	lines := strings.Split(s, "\n")
	quoted := make([]string, len(lines))
	for i, line := range lines {
		quoted[i] = `'` + strings.ReplaceAll(line, `'`, `''`) + `'`
	}

	return "[" + strings.Join(quoted, ",") + "]"
}

// UTF16Column converts a byte column of line into a count of UTF-16 code units.
// Columns past the end of the line are clamped.
func UTF16Column(line string, byteCol int) int {
	if byteCol > len(line) {
		byteCol = len(line)
	}
	n := 0
	for _, r := range line[:max(byteCol, 0)] {
		if r == utf8.RuneError {
			n++
			continue
		}
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// ExpandTildeToHomeDirectory is a function that expand '~' to absolute home directory path
func ExpandTildeToHomeDirectory(path string) (string, error) {
	return homedir.Expand(path)
}
