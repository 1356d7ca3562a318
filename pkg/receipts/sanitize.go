package receipts

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Upper bounds the API applies to text fields.
const (
	MaxClaimShort = 500
	MaxClaimLong  = 5000
	MaxQuote      = 1000
	MaxTitle      = 200
	MaxTopic      = 50
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize returns a copy of claim with markup and control characters removed from
// its text fields and lengths clamped to the API's limits. Knowledge artifacts are
// not touched.
func Sanitize(claim Claim) Claim {
	out := claim
	out.ClaimText = sanitizeText(claim.ClaimText, MaxClaimShort)
	out.ClaimLong = sanitizeText(claim.ClaimLong, MaxClaimLong)
	out.Topics = sanitizeList(claim.Topics, MaxTopic)
	out.Supporters = sanitizeList(claim.Supporters, MaxQuote)
	out.Opponents = sanitizeList(claim.Opponents, MaxQuote)
	out.Factions = sanitizeList(claim.Factions, MaxTopic)

	if len(claim.Sources) > 0 {
		out.Sources = make([]Source, len(claim.Sources))
		for i, s := range claim.Sources {
			s.Title = sanitizeText(s.Title, MaxTitle)
			s.Venue = sanitizeText(s.Venue, MaxTitle)
			s.URL = strings.TrimSpace(s.URL)
			s.DOI = strings.TrimSpace(s.DOI)
			out.Sources[i] = s
		}
	}
	return out
}

func sanitizeText(s string, maxLen int) string {
	if s == "" {
		return ""
	}
	// StrictPolicy escapes entities on output; undo that so "&" stays "&".
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxLen {
		s = string(r[:maxLen])
	}
	return s
}

func sanitizeList(in []string, maxLen int) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = sanitizeText(v, maxLen); v != "" {
			out = append(out, v)
		}
	}
	return out
}
