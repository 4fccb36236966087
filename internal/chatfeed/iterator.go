package chatfeed

import (
	"context"
	"errors"
)

// ErrCancelled is raised by a batch callback to signal a soft budget event
// (wall-clock ceiling, external cancellation). The iterator stops fetching
// further pages and propagates the signal to the caller unchanged.
var ErrCancelled = &cancelledError{}

type cancelledError struct{}

func (*cancelledError) Error() string { return "chat iteration cancelled" }

// IsCancelled reports whether err is (or wraps) ErrCancelled.
func IsCancelled(err error) bool {
	var ce *cancelledError
	return errors.As(err, &ce)
}

// BatchFunc consumes one non-empty page of messages. Returning ErrCancelled
// (or any error) stops iteration; ErrCancelled is treated as a soft budget
// event by callers, any other error is propagated as a hard failure.
type BatchFunc func(page Page) error

// IterateOptions controls pagination bounds.
type IterateOptions struct {
	MaxPages          int // default 10000
	StartOffsetSeconds int
}

// Result reports how much of the feed the iterator actually walked.
type Result struct {
	PagesProcessed     int
	LastOffsetSeconds int
}

// IterateChat walks pages for videoID starting at opts.StartOffsetSeconds,
// invoking onBatch synchronously for each non-empty page before the next
// fetch is issued. It stops when the feed runs out of pages, a page comes
// back empty, or the page budget is exhausted.
func IterateChat(ctx context.Context, adapter *Adapter, videoID string, onBatch BatchFunc, opts IterateOptions) (Result, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 10000
	}

	result := Result{LastOffsetSeconds: opts.StartOffsetSeconds}

	cursor := ""
	offset := opts.StartOffsetSeconds
	for result.PagesProcessed < maxPages {
		page, err := adapter.FetchPage(ctx, videoID, cursor, offset)
		if err != nil {
			return result, err
		}

		if len(page.Messages) == 0 {
			break
		}

		result.PagesProcessed++
		for _, m := range page.Messages {
			if m.OffsetSeconds > result.LastOffsetSeconds {
				result.LastOffsetSeconds = m.OffsetSeconds
			}
		}

		if err := onBatch(page); err != nil {
			return result, err
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return result, nil
}
