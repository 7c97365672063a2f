package scan

import (
	"strings"
	"unicode"
)

const (
	// minTitleLetters is the minimum alphabetic count for a cleaned
	// candidate to survive.
	minTitleLetters = 3

	// Length band of plausible card titles; candidates inside it earn
	// lengthBonus.
	scoreLengthMin = 5
	scoreLengthMax = 40
	lengthBonus    = 5
)

// confusionRemap maps characters the engines routinely misread on title
// typefaces to the character they almost always are in a title.
var confusionRemap = map[rune]rune{
	'|':      'l',
	'1':      'l',
	'0':      'O',
	'–': '-',  // en dash
	'—': '-',  // em dash
	'’': '\'', // curly apostrophe
}

// CleanCandidate normalizes raw engine output into a title candidate.
//
// # Algorithm
//
//  1. Keep only the first line.
//  2. Remap common engine confusions ('|' and '1' to 'l', '0' to 'O',
//     dashes to '-', curly apostrophe to the ASCII apostrophe).
//  3. Drop every character outside letters, space, '-', ''', ','. Any
//     whitespace counts as space.
//  4. Strip leading and trailing punctuation and whitespace.
//  5. Collapse whitespace runs to single spaces.
//
// The second return is false when fewer than minTitleLetters alphabetic
// characters survive; such output is noise, not a title.
//
// Cleaning is idempotent: a cleaned candidate passes through unchanged.
func CleanCandidate(raw string) (string, bool) {
	line := raw
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if mapped, ok := confusionRemap[r]; ok {
			r = mapped
		}
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsLetter(r) || r == '-' || r == '\'' || r == ',':
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimFunc(b.String(), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if letterCount(cleaned) < minTitleLetters {
		return "", false
	}
	return cleaned, true
}

// ScoreCandidate rates a cleaned candidate: one point per letter, two more
// per uppercase letter, plus lengthBonus when the total length sits in the
// plausible-title band. Uppercase weighs extra because titles are set in
// title case while misread art or body text rarely is.
func ScoreCandidate(text string) int {
	letters, upper, runes := 0, 0, 0
	for _, r := range text {
		runes++
		if unicode.IsLetter(r) {
			letters++
		}
		if unicode.IsUpper(r) {
			upper++
		}
	}

	score := letters + 2*upper
	if runes >= scoreLengthMin && runes <= scoreLengthMax {
		score += lengthBonus
	}
	return score
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
