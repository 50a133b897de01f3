package language

import "strings"

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "cze" vs "ces")
	display string   // Localized name shown to lecturers
	family  string   // TTS voice family prefix
	words   []string // Full word forms
}

var languages = []entry{
	{"cs", "ces", "cze", "Čeština", "czech", []string{"czech", "čeština", "cestina"}},
	{"en", "eng", "", "Angličtina", "english", []string{"english", "angličtina", "anglictina"}},
}

// Default is the language assumed when none is configured.
const Default = "cs"

// Language pairs a code with its localized display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Supported lists the lecture languages in catalog order.
func Supported() []Language {
	out := make([]Language, 0, len(languages))
	for _, e := range languages {
		out = append(out, Language{Code: e.code2, Name: e.display})
	}
	return out
}

// Normalize maps any recognized code or word to its ISO 639-1 code.
func Normalize(code string) (string, bool) {
	if e := lookup(code); e != nil {
		return e.code2, true
	}
	return "", false
}

// IsSupported reports whether the code resolves to a catalog language.
func IsSupported(code string) bool {
	_, ok := Normalize(code)
	return ok
}

// ToISO3 converts a recognized code to ISO 639-2. Unknown input yields "und".
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	return "und"
}

// DisplayName returns the localized name. Unknown codes fall back to the
// default language's name so prompts always name a real language.
func DisplayName(code string) string {
	if e := lookup(code); e != nil {
		return e.display
	}
	return byCode2[Default].display
}

// VoiceFamily returns the TTS voice prefix for the language ("czech",
// "english"). Unknown codes return the default family.
func VoiceFamily(code string) string {
	if e := lookup(code); e != nil {
		return e.family
	}
	return byCode2[Default].family
}
