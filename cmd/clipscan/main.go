// Command clipscan runs one-off or batched VOD chat analyses from the
// terminal, without standing up the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/clipscan/clipscan/internal/analysis"
	"github.com/clipscan/clipscan/internal/chatfeed"
	"github.com/clipscan/clipscan/internal/config"
	"github.com/clipscan/clipscan/internal/logger"
)

var CLI struct {
	URL         []string `arg:"" help:"One or more VOD URLs to analyze." required:""`
	Concurrency int      `help:"Max concurrent analyses when multiple URLs are given." short:"c" default:"3"`
	Pretty      bool     `help:"Pretty-print JSON output." default:"true"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("clipscan"),
		kong.Description("Analyze VOD replay chat and print surfaced moments as JSON."),
		kong.UsageOnError(),
	)

	config.LoadConfig()
	cfg := config.AppConfig
	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	adapter := chatfeed.NewAdapter(chatfeed.Config{
		BaseURL:    cfg.CommentFeedURL,
		ClientID:   cfg.CommentFeedClientID,
		QPS:        cfg.CommentFeedQPS,
		Burst:      cfg.CommentFeedBurst,
		Timeout:    time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}, log.WithComponent("chatfeed"))

	orchestrator := analysis.NewOrchestrator(adapter, log.WithComponent("analysis"), analysis.Config{
		WindowSec:         cfg.WindowSec,
		ClipDurationSec:   cfg.ClipDurationSec,
		MinGapSec:         cfg.MinGapSec,
		ThresholdFactor:   cfg.ThresholdFactor,
		MaxHighlights:     cfg.MaxHighlights,
		MaxPages:          cfg.MaxPages,
		AnalysisTimeoutMs: cfg.AnalysisTimeoutMs,
		ReactionDelaySec:  cfg.ReactionDelaySec,
	})

	if err := run(context.Background(), orchestrator, CLI.URL, CLI.Concurrency, CLI.Pretty); err != nil {
		fmt.Fprintf(os.Stderr, "clipscan: %v\n", err)
		os.Exit(1)
	}
}

// run analyzes every url with at most concurrency analyses in flight at
// once. Once the whole batch has finished, it prints the results in input
// order; a url whose analysis failed is reported on stderr instead.
func run(ctx context.Context, orchestrator *analysis.Orchestrator, urls []string, concurrency int, pretty bool) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]*analysis.Response, len(urls))
	errs := make([]error, len(urls))

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			resp, err := orchestrator.Analyze(ctx, u)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, u := range urls {
		if errs[i] != nil {
			fmt.Fprintf(os.Stderr, "clipscan: %s: %v\n", u, errs[i])
			continue
		}
		if err := printResponse(results[i], pretty); err != nil {
			return err
		}
	}
	return nil
}

func printResponse(resp *analysis.Response, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(resp, "", "  ")
	} else {
		b, err = json.Marshal(resp)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
