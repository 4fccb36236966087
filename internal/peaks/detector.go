// Package peaks implements the Peak Detector: it consumes a completed
// window-accumulator bucket map and produces chronologically ordered
// moments using per-window composite scoring, an adaptive statistical
// threshold, and greedy non-overlapping selection.
package peaks

import (
	"math"
	"sort"
	"strings"

	"github.com/clipscan/clipscan/internal/scoring"
	"github.com/clipscan/clipscan/internal/window"
)

// burstWindowSec is the sliding sub-window used to measure intra-bucket
// message density.
const burstWindowSec = 5

// Config controls peak detection. Zero values fall back to the spec's
// documented defaults.
type Config struct {
	WindowSec        int
	ClipDurationSec  int
	MinGapSec        int
	ThresholdFactor  float64
	MaxHighlights    int // 0 = unlimited
	ReactionDelaySec int // backward shift applied to a selected bucket's start
}

func (c Config) withDefaults() Config {
	if c.WindowSec <= 0 {
		c.WindowSec = 30
	}
	if c.ClipDurationSec <= 0 {
		c.ClipDurationSec = 30
	}
	if c.MinGapSec <= 0 {
		c.MinGapSec = 45
	}
	if c.ThresholdFactor == 0 {
		c.ThresholdFactor = 1.0
	}
	if c.ReactionDelaySec <= 0 {
		c.ReactionDelaySec = 20
	}
	return c
}

// Moment is a selected time range surfaced to the caller.
type Moment struct {
	StartSec       int                    `json:"startSec"`
	EndSec         int                    `json:"endSec"`
	Score          float64                `json:"score"`
	MessagesPerSec float64                `json:"messagesPerSec"`
	MessageCount   int                    `json:"messageCount"`
	Tag            scoring.Category       `json:"tag"`
	CategoryScores scoring.CategoryScores `json:"categoryScores"`
	BurstScore     float64                `json:"burstScore"`
	SpamScore      float64                `json:"spamScore"`
	SampleMessages []string               `json:"sampleMessages"`
}

// windowStat is the per-bucket working state carried between phase 1 and
// phase 3; it captures the merged (current + successor) bucket along with
// the composite score computed from it.
type windowStat struct {
	key    int
	merged mergedBucket
	burst  float64
	spam   float64
	score  float64
}

type mergedBucket struct {
	messageCount   int
	reactionScore  float64
	emoteCount     int
	categoryScores scoring.CategoryScores
	sampleMessages []string
}

// Detect runs the full three-phase peak-detection pipeline over buckets and
// returns chronologically ordered moments.
func Detect(buckets map[int]*window.Bucket, cfg Config) []Moment {
	cfg = cfg.withDefaults()

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	if len(keys) == 0 {
		return nil
	}

	stats := make([]windowStat, 0, len(keys))
	for i, k := range keys {
		bucket := buckets[k]
		var next *window.Bucket
		if i+1 < len(keys) {
			next = buckets[keys[i+1]]
		}
		merged := mergeBuckets(bucket, next)

		burst := burstScore(bucket.MessageTimestamps)
		spam := spamScore(bucket.SampleMessages)
		velocity := velocityMultiplier(i, keys, buckets)
		diversity := diversityBonus(bucket.SampleMessages)

		// Spam score is a per-window diagnostic carried through to the
		// emitted moment; it is not a term in the composite formula below.
		raw := float64(merged.messageCount) + merged.reactionScore*3 + float64(merged.emoteCount)*2 + burst*0.5
		score := raw * velocity * diversity

		stats = append(stats, windowStat{key: k, merged: merged, burst: burst, spam: spam, score: score})
	}

	mean, stddev := meanAndStddev(stats)
	threshold := mean + cfg.ThresholdFactor*stddev

	survivors := make([]windowStat, 0, len(stats))
	for _, s := range stats {
		if s.score >= threshold {
			survivors = append(survivors, s)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].score > survivors[j].score
	})

	type selected struct {
		startSec int
		endSec   int
		stat     windowStat
	}
	var picked []selected

	for _, s := range survivors {
		if cfg.MaxHighlights > 0 && len(picked) >= cfg.MaxHighlights {
			break
		}
		start := s.key - cfg.ReactionDelaySec
		if start < 0 {
			start = 0
		}
		end := start + cfg.ClipDurationSec

		overlaps := false
		for _, p := range picked {
			if start < p.endSec+cfg.MinGapSec && end > p.startSec-cfg.MinGapSec {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		picked = append(picked, selected{startSec: start, endSec: end, stat: s})
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].startSec < picked[j].startSec })

	moments := make([]Moment, 0, len(picked))
	for _, p := range picked {
		tag := dominantTag(p.stat.merged.categoryScores)
		moments = append(moments, Moment{
			StartSec:       p.startSec,
			EndSec:         p.endSec,
			Score:          p.stat.score,
			MessagesPerSec: math.Round(float64(p.stat.merged.messageCount)/float64(cfg.WindowSec)*10) / 10,
			MessageCount:   p.stat.merged.messageCount,
			Tag:            tag,
			CategoryScores: p.stat.merged.categoryScores,
			BurstScore:     p.stat.burst,
			SpamScore:      p.stat.spam,
			SampleMessages: p.stat.merged.sampleMessages,
		})
	}
	return moments
}

func mergeBuckets(cur, next *window.Bucket) mergedBucket {
	merged := mergedBucket{
		messageCount:   cur.MessageCount,
		reactionScore:  cur.ReactionScore,
		emoteCount:     cur.EmoteCount,
		categoryScores: cur.CategoryScores,
	}
	samples := append([]string{}, cur.SampleMessages...)

	if next != nil {
		merged.messageCount += next.MessageCount
		merged.reactionScore += next.ReactionScore
		merged.emoteCount += next.EmoteCount
		merged.categoryScores = merged.categoryScores.Add(next.CategoryScores)
		samples = append(samples, next.SampleMessages...)
	}
	if len(samples) > 10 {
		samples = samples[:10]
	}
	merged.sampleMessages = samples
	return merged
}

// burstScore measures intra-bucket density via a 5-second sliding window
// over sorted timestamps; it returns 0 unless there are at least 10
// timestamps and the densest 5-second window holds at least 5 msgs/sec.
func burstScore(timestamps []int) float64 {
	if len(timestamps) < 10 {
		return 0
	}
	sorted := append([]int{}, timestamps...)
	sort.Ints(sorted)

	maxCount := 0
	left := 0
	for right := 0; right < len(sorted); right++ {
		for sorted[right]-sorted[left] >= burstWindowSec {
			left++
		}
		count := right - left + 1
		if count > maxCount {
			maxCount = count
		}
	}

	msgsPerSec := float64(maxCount) / float64(burstWindowSec)
	if msgsPerSec < 5 {
		return 0
	}
	return math.Round(msgsPerSec*(msgsPerSec/5)*10) / 10
}

// spamScore rewards a bucket whose sample set is dominated by one
// near-duplicate message, per the biased sample-only definition: it only
// ever looks at the capped sample (at most 10 entries), not the bucket's
// full raw message set, so a large low-reaction bucket (which draws no
// samples) cannot surface as spam.
func spamScore(samples []string) float64 {
	if len(samples) < 3 {
		return 0
	}
	freq := make(map[string]int, len(samples))
	for _, s := range samples {
		norm := strings.ToLower(strings.TrimSpace(s))
		freq[norm]++
	}
	maxFreq := 0
	for _, c := range freq {
		if c > maxFreq {
			maxFreq = c
		}
	}
	if float64(maxFreq)/float64(len(samples)) >= 0.6 && maxFreq >= 3 {
		return float64(maxFreq) * 3
	}
	return 0
}

// velocityMultiplier compares the current bucket's message count against
// the rolling average of up to the two preceding buckets.
func velocityMultiplier(i int, keys []int, buckets map[int]*window.Bucket) float64 {
	if i == 0 {
		return 1.0
	}
	cur := buckets[keys[i]]

	sum, n := 0, 0
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		sum += buckets[keys[j]].MessageCount
		n++
	}
	prevAvg := float64(sum) / float64(n)

	if prevAvg < 1 {
		if cur.MessageCount > 5 {
			return 2.0
		}
		return 1.0
	}

	ratio := float64(cur.MessageCount) / prevAvg
	switch {
	case ratio >= 4:
		return 2.5
	case ratio >= 3:
		return 2.0
	case ratio >= 2:
		return 1.5
	case ratio >= 1.5:
		return 1.2
	default:
		return 1.0
	}
}

// diversityBonus rewards a varied sample set over a repetitive one; it
// ranges over [0.5, 1.0] and defaults to 1.0 (max diversity) when there are
// fewer than 2 samples to compare.
func diversityBonus(samples []string) float64 {
	if len(samples) < 2 {
		return 1.0
	}
	distinct := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		distinct[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	uniqueRatio := float64(len(distinct)) / float64(len(samples))
	return 0.5 + uniqueRatio*0.5
}

func meanAndStddev(stats []windowStat) (mean, stddev float64) {
	if len(stats) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, s := range stats {
		sum += s.score
	}
	mean = sum / float64(len(stats))

	variance := 0.0
	for _, s := range stats {
		d := s.score - mean
		variance += d * d
	}
	variance /= float64(len(stats))
	return mean, math.Sqrt(variance)
}

// dominantTag picks the category with the highest score, breaking ties by
// scoring.PriorityOrder. An all-zero vector defaults to hype.
func dominantTag(scores scoring.CategoryScores) scoring.Category {
	best := scoring.Hype
	bestScore := -1.0
	for _, cat := range scoring.PriorityOrder {
		v := scores[cat]
		if v > bestScore {
			bestScore = v
			best = cat
		}
	}
	if bestScore <= 0 {
		return scoring.Hype
	}
	return best
}
