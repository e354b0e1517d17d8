package classify

import (
	"strings"
	"unicode"
)

// normalize lower-cases s and reduces it to space-separated tokens so that
// keyword phrases match on word boundaries. "/" survives (o/u) and "@" is
// split out into its own token.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '@':
			if !lastSpace {
				b.WriteByte(' ')
			}
			b.WriteString("@ ")
			lastSpace = true
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '/':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// phraseSet holds keyword phrases pre-normalized for matching against
// normalize output.
type phraseSet []string

func newPhraseSet(phrases ...[]string) phraseSet {
	var out phraseSet
	seen := map[string]bool{}
	for _, list := range phrases {
		for _, p := range list {
			n := normalize(p)
			if strings.TrimSpace(n) == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// match returns the first phrase found in the normalized text.
func (ps phraseSet) match(normalized string) (string, bool) {
	for _, p := range ps {
		if strings.Contains(normalized, p) {
			return strings.TrimSpace(p), true
		}
	}
	return "", false
}

func (ps phraseSet) any(normalized string) bool {
	_, ok := ps.match(normalized)
	return ok
}

// slugTokens splits a slug on its separators.
func slugTokens(slug string) []string {
	return strings.FieldsFunc(strings.ToLower(slug), func(r rune) bool {
		return r == '-' || r == '_' || r == '/' || r == ' '
	})
}
