package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
)

// UntitledLecture is used when no title can be derived.
const UntitledLecture = "Untitled Lecture"

var titleCaser = cases.Title(xlanguage.Czech, cases.NoLower)

// DeriveTitle turns a recording path such as
// "/inbox/2024-03-01_uvod_do_fyziky.mp4" into "2024 03 01 Uvod Do Fyziky".
// Separators collapse to single spaces; words are title cased without
// lowering acronyms.
func DeriveTitle(sourcePath string) string {
	if strings.TrimSpace(sourcePath) == "" {
		return UntitledLecture
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return TitleCase(base)
}

// TitleCase collapses separators and title cases each word.
func TitleCase(text string) string {
	var cleaned strings.Builder
	prevSpace := false
	for _, r := range NormalizeText(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return UntitledLecture
	}
	return titleCaser.String(title)
}
