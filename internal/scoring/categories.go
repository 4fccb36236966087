package scoring

import "regexp"

// Category is one of the five closed-set reaction labels. The set, its
// keyword patterns, and its emote-name sets are all frozen at compile time —
// there is no runtime registration, matching how the Window Accumulator and
// Peak Detector assume a fixed category universe.
type Category string

const (
	Fun      Category = "fun"
	Hype     Category = "hype"
	Ban      Category = "ban"
	Sub      Category = "sub"
	Donation Category = "donation"
)

// PriorityOrder is the fixed tie-break order used by the dominant-tag
// resolver and by emote-fragment category resolution.
var PriorityOrder = []Category{Fun, Hype, Ban, Sub, Donation}

// CategoryScores is a score vector over the closed category set. All five
// categories are always present, zero when unused, so callers never need a
// presence check before reading a category's score.
type CategoryScores map[Category]float64

func newCategoryScores() CategoryScores {
	return CategoryScores{
		Fun:      0,
		Hype:     0,
		Ban:      0,
		Sub:      0,
		Donation: 0,
	}
}

// Add returns a new vector holding the per-category sum of cs and other;
// neither input is modified. Used by the accumulator and by the peak detector
// when virtually merging adjacent buckets.
func (cs CategoryScores) Add(other CategoryScores) CategoryScores {
	out := newCategoryScores()
	for cat := range out {
		out[cat] = cs[cat] + other[cat]
	}
	return out
}

// keywordPatterns holds, per category, the compiled case-insensitive regexes
// checked in order; the scan short-circuits on the first match.
var keywordPatterns = map[Category][]*regexp.Regexp{
	Fun: {
		regexp.MustCompile(`(?i)\bmdr\b`),
		regexp.MustCompile(`(?i)\bptdr\b`),
		regexp.MustCompile(`(?i)\blmao\b`),
		regexp.MustCompile(`(?i)\brofl\b`),
		regexp.MustCompile(`(?i)haha(ha)+`),
		regexp.MustCompile(`(?i)xdd+`),
	},
	Hype: {
		regexp.MustCompile(`(?i)\bpog(gers)?\b`),
		regexp.MustCompile(`(?i)let'?s go+\b`),
		regexp.MustCompile(`(?i)\binsane\b`),
		regexp.MustCompile(`(?i)\bomg\b`),
		regexp.MustCompile(`(?i)\bwtf\b`),
		regexp.MustCompile(`(?i)holy shit`),
	},
	Ban: {
		regexp.MustCompile(`(?i)has been banned`),
	},
	Sub: {
		regexp.MustCompile(`(?i)is gifting`),
	},
	Donation: {
		regexp.MustCompile(`(?i)cheer\d+`),
		regexp.MustCompile(`(?i)\bbits\b`),
		regexp.MustCompile(`(?i)\bdon(o|at(e|ion|ed))\b`),
		regexp.MustCompile(`(?i)[$€£]\s?\d+(\.\d{2})?`),
	},
}

// emoteSets holds, per category, the exact emote display names that earn
// that category's emote credit. Matching is plain string equality, not regex.
var emoteSets = map[Category]map[string]struct{}{
	Fun: {
		"LUL":      {},
		"OMEGALUL": {},
		"KEKW":     {},
		"4Head":    {},
	},
	Hype: {
		"PogChamp": {},
		"Pog":      {},
		"POGGERS":  {},
		"EZ":       {},
		"Clap":     {},
	},
	Ban: {
		"BibleThump": {},
	},
	Sub: {
		"SubHype":  {},
		"PartyHat": {},
	},
	Donation: {
		"cheer1":    {},
		"cheer100":  {},
		"cheer1000": {},
	},
}

// categoryForEmote returns the first category (in PriorityOrder) whose emote
// set contains name, and whether one was found.
func categoryForEmote(name string) (Category, bool) {
	for _, cat := range PriorityOrder {
		if _, ok := emoteSets[cat][name]; ok {
			return cat, true
		}
	}
	return "", false
}

// giftPattern extracts the gift count from a mass-gift-sub message, e.g.
// "Foo is gifting 20 subs".
var giftPattern = regexp.MustCompile(`(?i)is gifting (\d+)`)

// banPattern is the privileged ban-event trigger, checked before any
// category's ordinary keyword loop.
var banPattern = regexp.MustCompile(`(?i)has been banned`)
