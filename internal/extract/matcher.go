// Package extract turns raw model output into a validated answer letter.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Matcher finds a candidate answer letter in model output.
type Matcher interface {
	Name() string
	Match(text string) (string, bool)
}

type regexMatcher struct {
	name string
	re   *regexp.Regexp
	trim bool
}

func (m regexMatcher) Name() string { return m.name }

func (m regexMatcher) Match(text string) (string, bool) {
	if m.trim {
		text = strings.TrimSpace(text)
	}
	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	return strings.ToUpper(sub[1]), true
}

// CueMatcher finds a letter after a Vietnamese answer cue ("Đáp án", "Chọn",
// "Trả lời", "Kết quả"), after whitespace, or at the start of the text, and
// followed by a period, whitespace or the end of the text. Cue words and the
// letter match in any case; the letter is returned uppercase.
func CueMatcher() Matcher {
	return regexMatcher{
		name: "cue",
		re:   regexp.MustCompile(`(?:^|\s|(?i:đáp án|chọn|trả lời|kết quả))\s*[:\-]?\s*([A-Za-z])(?:[.\s]|$)`),
	}
}

// LineMatcher finds a line holding a single uppercase letter.
func LineMatcher() Matcher {
	return regexMatcher{
		name: "line",
		re:   regexp.MustCompile(`(?m)^([A-Z])$`),
		trim: true,
	}
}

// StandaloneMatcher finds the first uppercase letter not adjacent to another
// word character. Word characters include Vietnamese letters, so the "A" in
// "ĐA" does not count.
func StandaloneMatcher() Matcher {
	return standaloneMatcher{}
}

type standaloneMatcher struct{}

func (standaloneMatcher) Name() string { return "standalone" }

func (standaloneMatcher) Match(text string) (string, bool) {
	runes := []rune(text)
	for i, r := range runes {
		if r < 'A' || r > 'Z' {
			continue
		}
		if i > 0 && isWord(runes[i-1]) {
			continue
		}
		if i+1 < len(runes) && isWord(runes[i+1]) {
			continue
		}
		return string(r), true
	}
	return "", false
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// DefaultMatchers returns the cascade in precedence order.
func DefaultMatchers() []Matcher {
	return []Matcher{CueMatcher(), LineMatcher(), StandaloneMatcher()}
}
