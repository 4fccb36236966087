package window

import (
	"testing"

	"github.com/clipscan/clipscan/internal/chatfeed"
)

func msg(offset int, text string) chatfeed.ChatMessage {
	return chatfeed.ChatMessage{
		OffsetSeconds: offset,
		Text:          text,
		Fragments:     []chatfeed.Fragment{{Kind: chatfeed.FragmentText, Text: text}},
	}
}

func TestAddMessageBucketsByFloorOfOffset(t *testing.T) {
	acc := NewAccumulator(30)
	acc.AddMessage(msg(5, "hi"))
	acc.AddMessage(msg(29, "hi"))
	acc.AddMessage(msg(30, "hi"))
	acc.AddMessage(msg(61, "hi"))

	buckets := acc.GetBuckets()
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	if buckets[0].MessageCount != 2 {
		t.Fatalf("expected bucket 0 to hold 2 messages, got %d", buckets[0].MessageCount)
	}
	if buckets[30].MessageCount != 1 {
		t.Fatalf("expected bucket 30 to hold 1 message, got %d", buckets[30].MessageCount)
	}
	if buckets[60].MessageCount != 1 {
		t.Fatalf("expected bucket 60 to hold 1 message, got %d", buckets[60].MessageCount)
	}
}

func TestBucketInvariantMessageCountMatchesTimestamps(t *testing.T) {
	acc := NewAccumulator(30)
	for i := 0; i < 25; i++ {
		acc.AddMessage(msg(i, "hello"))
	}
	for _, b := range acc.GetBuckets() {
		if b.MessageCount != len(b.MessageTimestamps) {
			t.Fatalf("messageCount %d != len(timestamps) %d", b.MessageCount, len(b.MessageTimestamps))
		}
		for _, ts := range b.MessageTimestamps {
			if ts < b.StartSec || ts >= b.StartSec+30 {
				t.Fatalf("timestamp %d out of bucket [%d, %d)", ts, b.StartSec, b.StartSec+30)
			}
		}
	}
}

func TestSampleMessagesCappedAndGatedOnReactionScore(t *testing.T) {
	acc := NewAccumulator(30)
	for i := 0; i < 20; i++ {
		acc.AddMessage(msg(i, "LMAO")) // keyword match -> positive reaction score
	}
	for i := 0; i < 5; i++ {
		acc.AddMessage(msg(i, "no reaction here"))
	}

	bucket := acc.GetBuckets()[0]
	if len(bucket.SampleMessages) != maxSampleMessages {
		t.Fatalf("expected sample cap of %d, got %d", maxSampleMessages, len(bucket.SampleMessages))
	}
	if bucket.MessageCount != 25 {
		t.Fatalf("expected messageCount 25, got %d", bucket.MessageCount)
	}
}

func TestSampleMessagesAreTruncated(t *testing.T) {
	acc := NewAccumulator(30)
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	acc.AddMessage(msg(0, "lmao "+long))

	bucket := acc.GetBuckets()[0]
	if len(bucket.SampleMessages) != 1 {
		t.Fatalf("expected one sample, got %d", len(bucket.SampleMessages))
	}
	if len(bucket.SampleMessages[0]) != sampleTruncateLen {
		t.Fatalf("expected sample truncated to %d chars, got %d", sampleTruncateLen, len(bucket.SampleMessages[0]))
	}
}

func TestCategoryScoresAreAdditive(t *testing.T) {
	acc := NewAccumulator(30)
	acc.AddMessage(msg(1, "LMAO"))
	acc.AddMessage(msg(2, "LMAO"))

	bucket := acc.GetBuckets()[0]
	if bucket.CategoryScores["fun"] != 2 {
		t.Fatalf("expected fun category to accumulate to 2, got %v", bucket.CategoryScores["fun"])
	}
}

func TestMissingKeysRepresentEmptyWindows(t *testing.T) {
	acc := NewAccumulator(30)
	acc.AddMessage(msg(0, "hi"))
	acc.AddMessage(msg(90, "hi"))

	buckets := acc.GetBuckets()
	if _, ok := buckets[30]; ok {
		t.Fatalf("did not expect an entry for an untouched window")
	}
	if _, ok := buckets[60]; ok {
		t.Fatalf("did not expect an entry for an untouched window")
	}
}

func TestTotalMessagesSumsAcrossBuckets(t *testing.T) {
	acc := NewAccumulator(30)
	acc.AddMessage(msg(0, "hi"))
	acc.AddMessage(msg(31, "hi"))
	acc.AddMessage(msg(62, "hi"))

	if acc.TotalMessages() != 3 {
		t.Fatalf("expected total of 3, got %d", acc.TotalMessages())
	}
}

func TestSortedKeysAreAscending(t *testing.T) {
	acc := NewAccumulator(30)
	acc.AddMessage(msg(90, "hi"))
	acc.AddMessage(msg(0, "hi"))
	acc.AddMessage(msg(30, "hi"))

	keys := acc.SortedKeys()
	if len(keys) != 3 || keys[0] != 0 || keys[1] != 30 || keys[2] != 90 {
		t.Fatalf("expected ascending [0 30 90], got %v", keys)
	}
}
