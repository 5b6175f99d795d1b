package policy

import "strings"

// DefaultFallbackReply replaces any provider reply that discloses its origin.
const DefaultFallbackReply = "I’m your Webaurix Assistant, here to help you!"

// Rule is a disallowed phrase matched case-insensitively anywhere in a reply.
type Rule struct {
	Phrase string
}

// DefaultRules lists provenance disclosures the provider is known to produce.
func DefaultRules() []Rule {
	return []Rule{
		{Phrase: "I was developed by OpenAI"},
		{Phrase: "an artificial intelligence research organization"},
		{Phrase: "as an AI developed by OpenAI"},
		{Phrase: "I am a language model created by OpenAI"},
	}
}

// RulesFromPhrases turns free-form phrases into rules, skipping blanks.
func RulesFromPhrases(phrases []string) []Rule {
	out := make([]Rule, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Rule{Phrase: p})
		}
	}
	return out
}

// Sanitizer swaps the whole reply for a fallback when any rule matches.
type Sanitizer struct {
	fallback string
	phrases  []string
}

func NewSanitizer(rules []Rule, fallback string) *Sanitizer {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallbackReply
	}
	s := &Sanitizer{fallback: fallback}
	for _, r := range rules {
		if r.Phrase == "" {
			continue
		}
		s.phrases = append(s.phrases, strings.ToLower(r.Phrase))
	}
	return s
}

// Sanitize returns the fallback and true on the first matching rule,
// otherwise text unchanged.
func (s *Sanitizer) Sanitize(text string) (string, bool) {
	if len(s.phrases) == 0 {
		return text, false
	}
	lower := strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(lower, p) {
			return s.fallback, true
		}
	}
	return text, false
}

// Fallback returns the replacement reply.
func (s *Sanitizer) Fallback() string { return s.fallback }

// Sanitize applies rules to text with the given fallback.
func Sanitize(text string, rules []Rule, fallback string) string {
	out, _ := NewSanitizer(rules, fallback).Sanitize(text)
	return out
}
