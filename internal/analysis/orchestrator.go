// Package analysis implements the Analysis Orchestrator: it validates an
// analysis request, drives the chat iterator against an accumulator,
// enforces a wall-clock ceiling, invokes the peak detector, and shapes the
// final response.
package analysis

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/clipscan/clipscan/internal/chatfeed"
	cerrors "github.com/clipscan/clipscan/internal/errors"
	"github.com/clipscan/clipscan/internal/logger"
	"github.com/clipscan/clipscan/internal/metrics"
	"github.com/clipscan/clipscan/internal/peaks"
	"github.com/clipscan/clipscan/internal/window"
)

// videoIDPattern extracts a VOD identifier from a player/API URL of the
// form ".../videos/<digits>".
var videoIDPattern = regexp.MustCompile(`/videos/(\d+)`)

// Config binds the tunable parameters read from process configuration into
// one run. Zero values are filled in by the components they're passed to.
type Config struct {
	WindowSec         int
	ClipDurationSec   int
	MinGapSec         int
	ThresholdFactor   float64
	MaxHighlights     int
	MaxPages          int
	AnalysisTimeoutMs int
	ReactionDelaySec  int
}

// Orchestrator binds the ingest and scoring pipeline together for one
// analysis run at a time; it holds no per-run state between calls.
type Orchestrator struct {
	adapter *chatfeed.Adapter
	logger  *logger.Logger
	cfg     Config
}

func NewOrchestrator(adapter *chatfeed.Adapter, log *logger.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{adapter: adapter, logger: log, cfg: cfg}
}

// Timeline is one populated bucket's (offset, message count) pair, suitable
// for plotting chat density over the video's duration.
type Timeline struct {
	Sec   int `json:"sec"`
	Count int `json:"count"`
}

// Response is the shaped output of one analysis run.
type Response struct {
	VideoID         string         `json:"videoId"`
	TotalMessages   int            `json:"totalMessages"`
	BucketsAnalyzed int            `json:"bucketsAnalyzed"`
	Moments         []peaks.Moment `json:"moments"`
	Timeline        []Timeline     `json:"timeline"`
}

// ExtractVideoID pulls a VOD id out of a player/API URL. Inputs that don't
// contain a recognizable "/videos/<digits>" segment are rejected.
func ExtractVideoID(rawURL string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", cerrors.InvalidInput(fmt.Sprintf("could not extract a video id from %q", rawURL), nil)
	}
	return m[1], nil
}

// Analyze validates rawURL, walks the replay chat, and returns the shaped
// moment list. A wall-clock ceiling is enforced inside the iterator
// callback; breaching it is not an error, partial results are returned.
func (o *Orchestrator) Analyze(ctx context.Context, rawURL string) (*Response, error) {
	start := time.Now()
	defer func() { metrics.AnalysisDurationSeconds.Observe(time.Since(start).Seconds()) }()

	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		metrics.AnalysisRequestsTotal.WithLabelValues("invalid-input").Inc()
		return nil, err
	}

	ctx = logger.WithVideoID(ctx, videoID)
	log := o.logger.WithContext(ctx).WithComponent("orchestrator")

	windowSec := o.cfg.WindowSec
	if windowSec <= 0 {
		windowSec = 30
	}
	acc := window.NewAccumulator(windowSec)

	timeoutMs := o.cfg.AnalysisTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 180000
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	onBatch := func(page chatfeed.Page) error {
		for _, msg := range page.Messages {
			acc.AddMessage(msg)
		}
		if time.Now().After(deadline) {
			log.Warn("analysis timeout reached, stopping ingestion", "video_id", videoID)
			return chatfeed.ErrCancelled
		}
		return nil
	}

	result, err := chatfeed.IterateChat(ctx, o.adapter, videoID, onBatch, chatfeed.IterateOptions{MaxPages: o.cfg.MaxPages})
	if err != nil && !chatfeed.IsCancelled(err) {
		metrics.AnalysisRequestsTotal.WithLabelValues("upstream-unavailable").Inc()
		if re, ok := cerrors.AsRunError(err); ok {
			return nil, re
		}
		return nil, cerrors.UpstreamUnavailable("chat ingestion failed", err)
	}

	buckets := acc.GetBuckets()
	if len(buckets) == 0 {
		metrics.AnalysisRequestsTotal.WithLabelValues("no-data").Inc()
		return nil, cerrors.NoData(fmt.Sprintf("no chat messages found for video %s", videoID))
	}

	moments := peaks.Detect(buckets, peaks.Config{
		WindowSec:        windowSec,
		ClipDurationSec:  o.cfg.ClipDurationSec,
		MinGapSec:        o.cfg.MinGapSec,
		ThresholdFactor:  o.cfg.ThresholdFactor,
		MaxHighlights:    o.cfg.MaxHighlights,
		ReactionDelaySec: o.cfg.ReactionDelaySec,
	})

	timeline := make([]Timeline, 0, len(buckets))
	for _, key := range acc.SortedKeys() {
		timeline = append(timeline, Timeline{Sec: key, Count: buckets[key].MessageCount})
	}

	log.Info("analysis completed",
		"video_id", videoID,
		"total_messages", acc.TotalMessages(),
		"buckets_analyzed", len(buckets),
		"pages_processed", result.PagesProcessed,
		"moments_found", len(moments))

	metrics.AnalysisRequestsTotal.WithLabelValues("ok").Inc()
	metrics.MomentsFound.Observe(float64(len(moments)))

	return &Response{
		VideoID:         videoID,
		TotalMessages:   acc.TotalMessages(),
		BucketsAnalyzed: len(buckets),
		Moments:         moments,
		Timeline:        timeline,
	}, nil
}
