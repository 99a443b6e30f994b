package qualify

import "strings"

func containsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// HasWL reports whether the message is a win/loss question
func HasWL(c *LeadCriteria, text string) bool {
	return c.WLToken != "" && strings.Contains(strings.ToLower(text), strings.ToLower(c.WLToken))
}

// HasBypassPhrase reports whether the message relaxes the valuation floor
func HasBypassPhrase(c *LeadCriteria, text string) bool {
	return containsAny(text, c.BypassPhrases)
}

// HasNoviceBypassPhrase reports whether the message satisfies the novice rule
// regardless of activity
func HasNoviceBypassPhrase(c *LeadCriteria, text string) bool {
	return containsAny(text, c.NoviceBypassPhrases)
}
