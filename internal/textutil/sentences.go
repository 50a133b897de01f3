package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences breaks text at ". ", "! " and "? " boundaries. Every returned
// sentence ends with terminal punctuation; a period is appended only when the
// sentence has none. Blank pieces are dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentences = appendSentence(sentences, string(runes[start:i+1]))
		start = i + 1
	}
	if start < len(runes) {
		sentences = appendSentence(sentences, string(runes[start:]))
	}
	return sentences
}

func appendSentence(out []string, piece string) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" || strings.Trim(piece, ".!?") == "" {
		return out
	}
	if last, _ := utf8.DecodeLastRuneInString(piece); !isTerminal(last) {
		piece += "."
	}
	return append(out, piece)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// PackSentences greedily joins sentences with single spaces into chunks of at
// most size runes. A sentence longer than size becomes its own chunk.
func PackSentences(sentences []string, size int) []string {
	if size <= 0 {
		size = 1
	}
	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+1+sentenceLen > size {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// ChunkForSynthesis splits text into sentence-aligned chunks no longer than
// size runes (unless a single sentence exceeds it).
func ChunkForSynthesis(text string, size int) []string {
	return PackSentences(SplitSentences(text), size)
}

// ChunkForParaphrase splits on ". " and re-joins sentences with ". " while
// the chunk plus separator stays within size runes. Each chunk ends with a
// single period.
func ChunkForParaphrase(text string, size int) []string {
	var chunks []string
	current := ""
	flush := func() {
		if current == "" {
			return
		}
		if !strings.HasSuffix(current, ".") {
			current += "."
		}
		chunks = append(chunks, current)
		current = ""
	}
	for _, sentence := range strings.Split(text, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sentence)+2 <= size {
			if current == "" {
				current = sentence
			} else {
				current += ". " + sentence
			}
			continue
		}
		flush()
		current = sentence
	}
	flush()
	return chunks
}
