// Package window implements the Window Accumulator: it deposits scored chat
// messages into fixed-width time buckets keyed by the floor of the message
// offset, aggregating counts, per-category scores, raw timestamps, and a
// bounded sample of representative text.
package window

import (
	"sort"

	"github.com/clipscan/clipscan/internal/chatfeed"
	"github.com/clipscan/clipscan/internal/scoring"
)

// maxSampleMessages bounds per-bucket sample storage so a spam-heavy window
// can't grow without limit.
const maxSampleMessages = 10

// sampleTruncateLen is the max length of a stored sample message.
const sampleTruncateLen = 80

// Bucket is one fixed-width time window's aggregate state.
type Bucket struct {
	StartSec          int
	MessageCount      int
	ReactionScore     float64
	EmoteCount        int
	CategoryScores    scoring.CategoryScores
	MessageTimestamps []int
	SampleMessages    []string
}

func newBucket(startSec int) *Bucket {
	return &Bucket{
		StartSec:       startSec,
		CategoryScores: scoring.CategoryScores{scoring.Fun: 0, scoring.Hype: 0, scoring.Ban: 0, scoring.Sub: 0, scoring.Donation: 0},
	}
}

// Accumulator is the single-writer owner of the bucket map. It is not
// goroutine-safe by design: the chat iterator's callback is the only writer,
// matching the orchestrator's single-threaded cooperative pipeline.
type Accumulator struct {
	windowSec int
	buckets   map[int]*Bucket
}

// NewAccumulator constructs an Accumulator with the given bucket width in
// seconds. windowSec <= 0 defaults to 30, matching the orchestrator default.
func NewAccumulator(windowSec int) *Accumulator {
	if windowSec <= 0 {
		windowSec = 30
	}
	return &Accumulator{
		windowSec: windowSec,
		buckets:   make(map[int]*Bucket),
	}
}

// AddMessage scores msg and deposits it into the bucket for its offset,
// creating the bucket on first use.
func (a *Accumulator) AddMessage(msg chatfeed.ChatMessage) {
	key := (msg.OffsetSeconds / a.windowSec) * a.windowSec
	if msg.OffsetSeconds < 0 {
		// floor division toward negative infinity for negative offsets,
		// matching floor(offset/windowSec)*windowSec rather than Go's
		// truncating integer division.
		key = ((msg.OffsetSeconds - a.windowSec + 1) / a.windowSec) * a.windowSec
	}

	bucket, ok := a.buckets[key]
	if !ok {
		bucket = newBucket(key)
		a.buckets[key] = bucket
	}

	bucket.MessageCount++
	bucket.MessageTimestamps = append(bucket.MessageTimestamps, msg.OffsetSeconds)

	score := scoring.ScoreMessage(msg)
	bucket.ReactionScore += score.ReactionScore
	bucket.EmoteCount += score.EmoteCount
	bucket.CategoryScores = bucket.CategoryScores.Add(score.Categories)

	if score.ReactionScore > 0 && len(bucket.SampleMessages) < maxSampleMessages {
		bucket.SampleMessages = append(bucket.SampleMessages, truncateSample(msg.Text))
	}
}

func truncateSample(text string) string {
	if len(text) <= sampleTruncateLen {
		return text
	}
	return text[:sampleTruncateLen]
}

// GetBuckets returns the internal bucket map for read-only consumption by
// the peak detector. Callers must not mutate the returned buckets; ingestion
// must have completed before this is called.
func (a *Accumulator) GetBuckets() map[int]*Bucket {
	return a.buckets
}

// SortedKeys returns the accumulator's bucket keys in ascending order.
func (a *Accumulator) SortedKeys() []int {
	keys := make([]int, 0, len(a.buckets))
	for k := range a.buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// TotalMessages sums MessageCount across every bucket, used by the
// orchestrator to report totalMessages including partial results on
// cancellation.
func (a *Accumulator) TotalMessages() int {
	total := 0
	for _, b := range a.buckets {
		total += b.MessageCount
	}
	return total
}
