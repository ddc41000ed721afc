package fulfillment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"avatarbook/internal/domain"
)

const (
	maxScriptName     = 40
	maxScriptInterest = 30
	maxScriptHint     = 60
	maxScriptMessage  = 140
)

var (
	urlPattern    = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	markupPattern = regexp.MustCompile("[<>{}\\[\\]`*_#|\\\\\"]")
	spacePattern  = regexp.MustCompile(`\s+`)
)

// sanitize reduces guardian free text to plain speakable words: links and
// markup are dropped, control characters removed and the result capped at max
// runes on a word boundary.
func sanitize(s string, max int) string {
	s = urlPattern.ReplaceAllString(s, " ")
	s = markupPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
	s = strings.Trim(s, " .,;:!?-'")

	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)[:max]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:!?-'")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func joinInterests(interests []string) string {
	clean := make([]string, 0, len(interests))
	for _, i := range interests {
		if s := sanitize(i, maxScriptInterest); s != "" {
			clean = append(clean, s)
		}
	}

	switch len(clean) {
	case 0:
		return ""
	case 1:
		return clean[0]
	}
	return strings.Join(clean[:len(clean)-1], ", ") + " and " + clean[len(clean)-1]
}

func childName(child domain.ChildProfile) string {
	if name := sanitize(child.Name, maxScriptName); name != "" {
		return name
	}
	return "friend"
}

// VideoScript composes what the avatar says in a pre-recorded video. Gift
// hints and messages are reported in the third person, never read out as
// written.
func VideoScript(child domain.ChildProfile) string {
	name := childName(child)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! I'm so happy to be making this video just for you.", name)
	if child.Age > 0 {
		fmt.Fprintf(&b, " Wow, %d years old, that is a wonderful age to be.", child.Age)
	}
	if interests := joinInterests(child.Interests); interests != "" {
		fmt.Fprintf(&b, " I heard that you love %s. That is so cool!", interests)
	}
	if child.GiftHint != nil {
		if hint := sanitize(*child.GiftHint, maxScriptHint); hint != "" {
			fmt.Fprintf(&b, " I have a little secret: something to do with %s might be coming your way soon.", lowerFirst(hint))
		}
	}
	if child.Message != nil {
		if msg := sanitize(*child.Message, maxScriptMessage); msg != "" {
			fmt.Fprintf(&b, " The grown-ups who love you asked me to pass something along. In their words, more or less: %s.", lowerFirst(msg))
		}
	}
	b.WriteString(" Keep being amazing, and have a fantastic day!")

	return b.String()
}

// ConversationContext briefs the live avatar about the child. The guardian's
// text is given as background to paraphrase.
func ConversationContext(child domain.ChildProfile) string {
	name := childName(child)

	var b strings.Builder
	fmt.Fprintf(&b, "You are having a live video call with %s", name)
	if child.Age > 0 {
		fmt.Fprintf(&b, ", who is %d years old", child.Age)
	}
	b.WriteString(". Keep the conversation warm, playful and appropriate for a child. Never ask for personal information.")
	if interests := joinInterests(child.Interests); interests != "" {
		fmt.Fprintf(&b, " %s loves %s; ask about them.", name, interests)
	}
	if child.GiftHint != nil {
		if hint := sanitize(*child.GiftHint, maxScriptHint); hint != "" {
			fmt.Fprintf(&b, " A parent hinted that a gift related to %s may be coming; you may tease it without revealing details.", lowerFirst(hint))
		}
	}
	if child.Message != nil {
		if msg := sanitize(*child.Message, maxScriptMessage); msg != "" {
			fmt.Fprintf(&b, " Background from a parent, to paraphrase in your own words and never quote: %s.", msg)
		}
	}

	return b.String()
}

func ConversationGreeting(child domain.ChildProfile) string {
	return fmt.Sprintf("Hi %s! I've been looking forward to talking with you!", childName(child))
}
