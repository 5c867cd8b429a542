package booklet

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultTitleMaxLength is the longest title, in runes, stamped on a page.
const DefaultTitleMaxLength = 40

// CleanTitle derives a page title from a source document path: the base
// name without its extension, NFC normalised and cut to maxLen runes.
// With stripNumbers set, leading and trailing digits and separators are
// removed as well ("03. Intro 2.pdf" becomes "Intro"), unless nothing
// but numbering would remain ("01.pdf" stays "01").
func CleanTitle(path string, stripNumbers bool, maxLen int) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = norm.NFC.String(name)
	if stripNumbers {
		if stripped := strings.TrimFunc(name, isNumberNoise); stripped != "" {
			name = stripped
		}
	}
	name = strings.TrimSpace(name)

	if maxLen > 0 {
		if r := []rune(name); len(r) > maxLen {
			name = strings.TrimSpace(string(r[:maxLen]))
		}
	}
	return name
}

func isNumberNoise(r rune) bool {
	return unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".-_()[]#", r)
}
