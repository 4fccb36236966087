package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clipscan/clipscan/internal/chatfeed"
	"github.com/clipscan/clipscan/internal/logger"
	"log/slog"
)

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.twitch.tv/videos/123456789", "123456789", false},
		{"https://player.twitch.tv/?video=v123456789", "", true},
		{"not a url at all", "", true},
	}
	for _, tc := range cases {
		got, err := ExtractVideoID(tc.url)
		if tc.wantErr && err == nil {
			t.Errorf("ExtractVideoID(%q): expected error, got %q", tc.url, got)
		}
		if !tc.wantErr && (err != nil || got != tc.want) {
			t.Errorf("ExtractVideoID(%q) = (%q, %v), want %q", tc.url, got, err, tc.want)
		}
	}
}

type edgeNode struct {
	ContentOffsetSeconds int    `json:"contentOffsetSeconds"`
	Commenter            *struct {
		DisplayName string `json:"displayName"`
	} `json:"commenter"`
	Message struct {
		Fragments []struct {
			Text string `json:"text"`
		} `json:"fragments"`
	} `json:"message"`
}

func buildPageResponse(texts []string, startOffset int, hasNext bool) string {
	type edge struct {
		Cursor string   `json:"cursor"`
		Node   edgeNode `json:"node"`
	}
	edges := make([]edge, 0, len(texts))
	for i, txt := range texts {
		n := edgeNode{ContentOffsetSeconds: startOffset + i}
		n.Message.Fragments = []struct {
			Text string `json:"text"`
		}{{Text: txt}}
		edges = append(edges, edge{Cursor: "c", Node: n})
	}
	payload := []map[string]interface{}{
		{
			"data": map[string]interface{}{
				"video": map[string]interface{}{
					"comments": map[string]interface{}{
						"edges":    edges,
						"pageInfo": map[string]interface{}{"hasNextPage": hasNext},
					},
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			texts := make([]string, 0, 40)
			for i := 0; i < 40; i++ {
				texts = append(texts, "LMAO hype moment")
			}
			w.Write([]byte(buildPageResponse(texts, 0, false)))
			return
		}
		w.Write([]byte(buildPageResponse(nil, 0, false)))
	}))
	defer server.Close()

	adapter := chatfeed.NewAdapter(chatfeed.Config{
		BaseURL:  server.URL,
		ClientID: "test-client",
	}, logger.New(logger.Config{Level: slog.LevelError, Format: "text"}))

	orch := NewOrchestrator(adapter, logger.New(logger.Config{Level: slog.LevelError, Format: "text"}), Config{
		ThresholdFactor: 0,
	})

	resp, err := orch.Analyze(context.Background(), "https://www.twitch.tv/videos/42")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if resp.VideoID != "42" {
		t.Fatalf("expected video id 42, got %s", resp.VideoID)
	}
	if resp.TotalMessages != 40 {
		t.Fatalf("expected 40 total messages, got %d", resp.TotalMessages)
	}
	if len(resp.Timeline) == 0 {
		t.Fatalf("expected a non-empty timeline")
	}
}

func TestAnalyzeRejectsUnrecognizedURL(t *testing.T) {
	adapter := chatfeed.NewAdapter(chatfeed.Config{BaseURL: "http://example.invalid"}, logger.New(logger.Config{Level: slog.LevelError, Format: "text"}))
	orch := NewOrchestrator(adapter, logger.New(logger.Config{Level: slog.LevelError, Format: "text"}), Config{})

	_, err := orch.Analyze(context.Background(), "not a video url")
	if err == nil {
		t.Fatalf("expected an error for an unrecognized URL")
	}
}

func TestAnalyzeReturnsNoDataWhenFeedIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(buildPageResponse(nil, 0, false)))
	}))
	defer server.Close()

	adapter := chatfeed.NewAdapter(chatfeed.Config{BaseURL: server.URL}, logger.New(logger.Config{Level: slog.LevelError, Format: "text"}))
	orch := NewOrchestrator(adapter, logger.New(logger.Config{Level: slog.LevelError, Format: "text"}), Config{})

	_, err := orch.Analyze(context.Background(), "https://www.twitch.tv/videos/1")
	if err == nil {
		t.Fatalf("expected a no-data error for an empty feed")
	}
}
