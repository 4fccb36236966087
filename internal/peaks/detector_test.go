package peaks

import (
	"testing"

	"github.com/clipscan/clipscan/internal/chatfeed"
	"github.com/clipscan/clipscan/internal/scoring"
	"github.com/clipscan/clipscan/internal/window"
)

func fill(acc *window.Accumulator, startOffset, count int, text string) {
	for i := 0; i < count; i++ {
		acc.AddMessage(chatfeed.ChatMessage{
			OffsetSeconds: startOffset + i,
			Text:          text,
			Fragments:     []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: text}},
		})
	}
}

func TestEmptyBucketMapYieldsNoMoments(t *testing.T) {
	moments := Detect(map[int]*window.Bucket{}, Config{})
	if len(moments) != 0 {
		t.Fatalf("expected no moments for an empty bucket map, got %d", len(moments))
	}
}

func TestBanSurfacing(t *testing.T) {
	acc := window.NewAccumulator(30)
	fill(acc, 0, 40, "hey everyone")
	acc.AddMessage(chatfeed.ChatMessage{
		OffsetSeconds: 15,
		Text:          "xXx has been banned.",
		Fragments:     []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: "xXx has been banned."}},
	})
	// a second, low-value bucket so the threshold isn't trivially met by
	// every bucket at once.
	fill(acc, 100, 40, "hey everyone")

	moments := Detect(acc.GetBuckets(), Config{})
	found := false
	for _, m := range moments {
		if m.Tag == scoring.Ban {
			found = true
			if m.CategoryScores[scoring.Ban] < 15 {
				t.Fatalf("expected ban category >= 15, got %v", m.CategoryScores[scoring.Ban])
			}
		}
	}
	if !found {
		t.Fatalf("expected a ban-tagged moment among %+v", moments)
	}
}

func TestMassGiftGating(t *testing.T) {
	acc := window.NewAccumulator(30)
	fill(acc, 0, 50, "neutral message")
	acc.AddMessage(chatfeed.ChatMessage{
		OffsetSeconds: 10,
		Text:          "Foo is gifting 20 subs",
		Fragments:     []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: "Foo is gifting 20 subs"}},
	})

	fill(acc, 100, 50, "neutral message")
	acc.AddMessage(chatfeed.ChatMessage{
		OffsetSeconds: 110,
		Text:          "Bar is gifting 10 subs",
		Fragments:     []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: "Bar is gifting 10 subs"}},
	})

	buckets := acc.GetBuckets()
	if buckets[90].CategoryScores[scoring.Sub] != 0 {
		t.Fatalf("expected zero sub credit for a sub-threshold gift, got %v", buckets[90].CategoryScores[scoring.Sub])
	}
	if buckets[0].CategoryScores[scoring.Sub] == 0 {
		t.Fatalf("expected sub credit for a 20-sub gift")
	}
}

func TestAdaptiveThresholdFiltersUniformFeed(t *testing.T) {
	acc := window.NewAccumulator(30)
	for b := 0; b < 20; b++ {
		// 100 messages per bucket, all inside the bucket's own 30 seconds.
		for r := 0; r < 4; r++ {
			fill(acc, b*30, 25, "neutral message with no reaction keywords at all")
		}
	}

	moments := Detect(acc.GetBuckets(), Config{})
	// Uniform, no-reaction feed: every bucket but the last (which has no
	// successor to merge with) scores the same, so none reaches mean + stddev.
	if len(moments) != 0 {
		t.Fatalf("expected no moments for a perfectly uniform feed, got %d", len(moments))
	}
}

func TestBurstSuperlinearity(t *testing.T) {
	spread := window.NewAccumulator(30)
	for i := 0; i < 60; i++ {
		spread.AddMessage(chatfeed.ChatMessage{OffsetSeconds: i / 2, Text: "hi", Fragments: []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: "hi"}}})
	}

	spike := window.NewAccumulator(30)
	for i := 0; i < 60; i++ {
		spike.AddMessage(chatfeed.ChatMessage{OffsetSeconds: i % 3, Text: "hi", Fragments: []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: "hi"}}})
	}

	burstA := burstScore(spread.GetBuckets()[0].MessageTimestamps)
	burstB := burstScore(spike.GetBuckets()[0].MessageTimestamps)

	if burstB <= burstA {
		t.Fatalf("expected burst(B) > burst(A), got A=%v B=%v", burstA, burstB)
	}
}

func TestNonOverlapWithReactionDelay(t *testing.T) {
	acc := window.NewAccumulator(30)
	fill(acc, 600, 60, "LMAO HYPE")
	fill(acc, 630, 60, "LMAO HYPE")

	// A near-zero factor keeps both buckets above the threshold (a factor of 0
	// falls back to the default 1.0), so the overlap test is what drops one.
	moments := Detect(acc.GetBuckets(), Config{WindowSec: 30, ClipDurationSec: 30, MinGapSec: 45, ThresholdFactor: 0.01})
	if len(moments) != 1 {
		t.Fatalf("expected exactly one moment after overlap rejection, got %d: %+v", len(moments), moments)
	}
}

func TestMomentsAreChronologicallySorted(t *testing.T) {
	acc := window.NewAccumulator(30)
	fill(acc, 0, 60, "LMAO")
	fill(acc, 300, 60, "POG")
	fill(acc, 150, 60, "has been banned")

	moments := Detect(acc.GetBuckets(), Config{ThresholdFactor: 0})
	for i := 1; i < len(moments); i++ {
		if moments[i].StartSec <= moments[i-1].StartSec {
			t.Fatalf("expected strictly increasing startSec, got %+v", moments)
		}
	}
}

func TestDominantTagDefaultsToHypeWhenAllZero(t *testing.T) {
	zero := scoring.CategoryScores{scoring.Fun: 0, scoring.Hype: 0, scoring.Ban: 0, scoring.Sub: 0, scoring.Donation: 0}
	if tag := dominantTag(zero); tag != scoring.Hype {
		t.Fatalf("expected hype default, got %v", tag)
	}
}
