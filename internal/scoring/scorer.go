package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/clipscan/clipscan/internal/chatfeed"
)

// MessageScore is the pure output of scoring one chat message: an aggregate
// reaction score, an emote count, and a score vector over the five
// categories.
type MessageScore struct {
	ReactionScore float64
	EmoteCount    int
	Categories    CategoryScores
}

// maxGiftBonus caps the reward for a single mass-gift event so one enormous
// gift sub burst doesn't dwarf everything else in the bucket.
const maxGiftBonus = 20

// minGiftForCredit is the smallest gift count that earns sub credit; smaller
// gifts are common and not reliably clip-worthy on their own.
const minGiftForCredit = 15

// ScoreMessage classifies msg into the five reaction categories and computes
// its aggregate reaction score. It is a pure function: no I/O, no shared
// mutable state, same input always yields the same output.
func ScoreMessage(msg chatfeed.ChatMessage) MessageScore {
	score := MessageScore{Categories: newCategoryScores()}

	// Step 1: privileged events. These apply regardless of what the ordinary
	// keyword loop below would also match, so a ban or big gift always
	// registers its full weight even in a bucket full of unrelated chatter.
	giftRegistered := false
	if banPattern.MatchString(msg.Text) {
		score.ReactionScore += 15
		score.Categories[Ban] += 15
	}
	if m := giftPattern.FindStringSubmatch(msg.Text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= minGiftForCredit {
			bonus := math.Min(math.Round(float64(n)*0.6), maxGiftBonus)
			score.ReactionScore += bonus
			score.Categories[Sub] += bonus
			giftRegistered = true
		}
	}

	// Step 2: emote scoring. At most one category credit per fragment; the
	// first category (in PriorityOrder) whose emote set contains the
	// fragment wins.
	for _, frag := range msg.Fragments {
		if frag.Kind != chatfeed.FragmentEmote {
			continue
		}
		cat, ok := categoryForEmote(frag.Text)
		if !ok {
			continue
		}
		score.ReactionScore += 2
		score.EmoteCount++
		score.Categories[cat] += 2
	}

	// Step 3: keyword scoring. At most one match per category; the scan
	// short-circuits on the category's first matching pattern.
	for _, cat := range PriorityOrder {
		if cat == Sub && !giftRegistered {
			continue
		}
		for _, pattern := range keywordPatterns[cat] {
			if pattern.MatchString(msg.Text) {
				score.ReactionScore += 1
				score.Categories[cat] += 1
				break
			}
		}
	}

	// Step 4: ALL-CAPS bonus.
	if isShouting(msg.Text) {
		score.ReactionScore += 0.5
		score.Categories[Hype] += 0.5
	}

	return score
}

// isShouting reports whether text reads as ALL CAPS: at least 5 characters,
// at least one ASCII letter, and no lowercase letters.
func isShouting(text string) bool {
	if len(text) < 5 {
		return false
	}
	hasLetter := false
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter && text == strings.ToUpper(text)
}
