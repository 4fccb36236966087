package chatfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	cerrors "github.com/clipscan/clipscan/internal/errors"
	"github.com/clipscan/clipscan/internal/logger"
	"github.com/clipscan/clipscan/internal/metrics"
)

// commentsQueryOperation is the operation name of the persisted query this adapter
// speaks. The upstream feed is a persisted-query GraphQL endpoint: the
// request carries the operation name, variables, and a persisted query hash
// instead of a query document.
const commentsQueryOperation = "VideoCommentsByOffsetOrCursor"

// commentsQueryHash is the persisted query's sha256 hash, negotiated out of
// band with the feed operator. It never changes at runtime.
const commentsQueryHash = "b6eb991d205b4032aab27a21a1ca7dd96a0b62458dd3e35ea5f3cc7e98d98373"

// Adapter fetches one page of comments at a time from the upstream comment
// feed. It owns transport-level retries with exponential backoff; it never
// mixes state across attempts, and the first successful attempt wins.
type Adapter struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger

	baseURL    string
	clientID   string
	maxRetries uint64
}

// Config configures an Adapter.
type Config struct {
	BaseURL    string
	ClientID   string
	QPS        float64 // sustained requests/sec to the upstream feed
	Burst      int
	Timeout    time.Duration
	MaxRetries int // additional attempts after the first, per §4.1 (default 3)
}

func NewAdapter(cfg Config, log *logger.Logger) *Adapter {
	qps := cfg.QPS
	if qps <= 0 {
		qps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(qps), burst),
		logger:     log,
		baseURL:    cfg.BaseURL,
		clientID:   cfg.ClientID,
		maxRetries: uint64(maxRetries),
	}
}

// FetchPage fetches one page of comments for videoID. Exactly one of cursor
// and offsetSeconds is meaningful: when cursor is non-empty it takes
// precedence, otherwise offsetSeconds seeds the starting position.
func (a *Adapter) FetchPage(ctx context.Context, videoID, cursor string, offsetSeconds int) (Page, error) {
	backoff, err := retry.NewExponential(1 * time.Second)
	if err != nil {
		return Page{}, cerrors.Internal("failed to construct backoff", err)
	}
	backoff = retry.WithMaxRetries(a.maxRetries, backoff)

	var page Page
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		p, ferr := a.fetchOnce(ctx, videoID, cursor, offsetSeconds)
		if ferr == nil {
			page = p
			metrics.PagesFetchedTotal.Inc()
			return nil
		}

		if isRetryable(ferr) {
			metrics.CommentFeedRetriesTotal.Inc()
			a.logger.Warn("retryable comment feed failure",
				"video_id", videoID,
				"attempt", attempt,
				"error", ferr.Error())
			return retry.RetryableError(ferr)
		}
		return ferr
	})
	if err != nil {
		if re, ok := cerrors.AsRunError(err); ok {
			return Page{}, re
		}
		return Page{}, cerrors.UpstreamUnavailable("comment feed request failed", err)
	}
	return page, nil
}

// fetchOnce performs exactly one HTTP attempt; it never mixes state with any
// other attempt and returns either a fully decoded Page or a classified error.
func (a *Adapter) fetchOnce(ctx context.Context, videoID, cursor string, offsetSeconds int) (Page, error) {
	body, err := a.buildRequestBody(videoID, cursor, offsetSeconds)
	if err != nil {
		return Page{}, cerrors.Internal("failed to build request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return Page{}, cerrors.Internal("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-ID", a.clientID)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Page{}, retryableTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, retryableTransportError(err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return Page{}, newRetryableStatusError(resp.StatusCode, raw)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, cerrors.UpstreamUnavailable(
			fmt.Sprintf("comment feed returned status %d: %s", resp.StatusCode, truncate(string(raw), 200)), nil)
	}

	return decodeCommentsResponse(raw)
}

// gqlEnvelope mirrors the persisted-query response: an array whose first
// element carries either a feed-level errors array or the comments payload.
type gqlEnvelope struct {
	Errors []gqlError `json:"errors"`
	Data   *gqlData   `json:"data"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlData struct {
	Video *gqlVideo `json:"video"`
}

type gqlVideo struct {
	Comments gqlComments `json:"comments"`
}

type gqlComments struct {
	Edges    []gqlEdge `json:"edges"`
	PageInfo gqlPage   `json:"pageInfo"`
}

type gqlEdge struct {
	Cursor string `json:"cursor"`
	Node   struct {
		ContentOffsetSeconds int `json:"contentOffsetSeconds"`
		Commenter            *struct {
			DisplayName string `json:"displayName"`
		} `json:"commenter"`
		Message struct {
			Fragments []struct {
				Text  string `json:"text"`
				Emote *struct {
					ID string `json:"emoticonID"`
				} `json:"emote"`
			} `json:"fragments"`
		} `json:"message"`
	} `json:"node"`
}

type gqlPage struct {
	HasNextPage bool `json:"hasNextPage"`
}

func decodeCommentsResponse(raw []byte) (Page, error) {
	// The feed occasionally emits slightly malformed JSON (trailing commas,
	// unescaped control characters); repair it best-effort before parsing so
	// a single cosmetic glitch doesn't fail the whole page.
	repaired, rerr := jsonrepair.JSONRepair(string(raw))
	if rerr != nil {
		repaired = string(raw)
	}

	var envelope []gqlEnvelope
	if err := json.Unmarshal([]byte(repaired), &envelope); err != nil {
		return Page{}, cerrors.UpstreamUnavailable("comment feed response was not valid JSON", err)
	}
	if len(envelope) == 0 {
		return Page{Messages: nil, NextCursor: ""}, nil
	}

	first := envelope[0]
	if len(first.Errors) > 0 {
		joined := make([]string, 0, len(first.Errors))
		for _, e := range first.Errors {
			joined = append(joined, e.Message)
		}
		msg := strings.Join(joined, "; ")
		if looksTransient(msg) {
			return Page{}, newRetryableFeedError(msg)
		}
		return Page{}, cerrors.UpstreamUnavailable("comment feed error: "+msg, nil)
	}

	if first.Data == nil || first.Data.Video == nil {
		return Page{Messages: nil, NextCursor: ""}, nil
	}

	comments := first.Data.Video.Comments
	if len(comments.Edges) == 0 {
		return Page{Messages: nil, NextCursor: ""}, nil
	}

	messages := make([]ChatMessage, 0, len(comments.Edges))
	var lastCursor string
	for _, edge := range comments.Edges {
		fragments := make([]Fragment, 0, len(edge.Node.Message.Fragments))
		var text strings.Builder
		for _, f := range edge.Node.Message.Fragments {
			if f.Emote != nil {
				fragments = append(fragments, Fragment{Kind: FragmentEmote, Text: f.Text, ID: f.Emote.ID})
			} else {
				fragments = append(fragments, Fragment{Kind: FragmentText, Text: f.Text})
			}
			text.WriteString(f.Text)
		}

		author := ""
		if edge.Node.Commenter != nil {
			author = edge.Node.Commenter.DisplayName
		}

		messages = append(messages, ChatMessage{
			OffsetSeconds: edge.Node.ContentOffsetSeconds,
			Author:        author,
			Fragments:     fragments,
			Text:          text.String(),
		})
		lastCursor = edge.Cursor
	}

	nextCursor := ""
	if comments.PageInfo.HasNextPage {
		nextCursor = lastCursor
	}

	return Page{Messages: messages, NextCursor: nextCursor}, nil
}

func (a *Adapter) buildRequestBody(videoID, cursor string, offsetSeconds int) ([]byte, error) {
	variables := map[string]interface{}{
		"videoID": videoID,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	} else {
		variables["contentOffsetSeconds"] = offsetSeconds
	}

	payload := []map[string]interface{}{
		{
			"operationName": commentsQueryOperation,
			"variables":     variables,
			"extensions": map[string]interface{}{
				"persistedQuery": map[string]interface{}{
					"version":    1,
					"sha256Hash": commentsQueryHash,
				},
			},
		},
	}
	return json.Marshal(payload)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func looksTransient(msg string) bool {
	lower := strings.ToLower(msg)
	for _, needle := range []string{"timeout", "rate", "503", "502"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// retryableError marks an error as transport/transient so the retry loop
// keeps going instead of short-circuiting.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryableTransportError(err error) error {
	return &retryableError{err: cerrors.UpstreamUnavailable("transport error contacting comment feed", err)}
}

func newRetryableStatusError(status int, body []byte) error {
	return &retryableError{err: cerrors.UpstreamUnavailable(
		fmt.Sprintf("comment feed returned retryable status %d: %s", status, truncate(string(body), 200)), nil)}
}

func newRetryableFeedError(msg string) error {
	return &retryableError{err: cerrors.UpstreamUnavailable("comment feed error: "+msg, nil)}
}

func isRetryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}
