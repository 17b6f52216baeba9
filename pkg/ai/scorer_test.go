package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestNewScorerValidation(t *testing.T) {
	if _, err := NewScorer(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
	if _, err := NewScorer(Config{Provider: "mistral", APIKey: "k"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	s, err := NewScorer(Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	oai, ok := s.(*openAIScorer)
	if !ok {
		t.Fatalf("unexpected scorer type %T", s)
	}
	if oai.model != defaultModel || oai.endpoint != defaultEndpoint {
		t.Fatalf("defaults not applied: %+v", oai)
	}
}

func TestScore(t *testing.T) {
	var gotAuth, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		raw, _ := json.Marshal(req)
		gotContent = gjson.GetBytes(raw, "messages.0.content").Str

		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"summary\":\"a shop\",\"brand\":\"Acme\",\"services\":[\"anvils\"],\"location\":\"EU\",\"topics\":[\"hardware\"],\"aio_score\":74}"}}]}`)
	}))
	defer srv.Close()

	s, err := NewScorer(Config{APIKey: "secret", Endpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	sum, err := s.Score(context.Background(), "https://acme.example/", "Acme sells anvils")
	if err != nil {
		t.Fatal(err)
	}
	if sum.AIOScore != 74 || sum.Brand != "Acme" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if !strings.Contains(gotContent, "https://acme.example/") || !strings.Contains(gotContent, "Acme sells anvils") {
		t.Fatalf("prompt missing page data: %q", gotContent)
	}
}

func TestScoreAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	s, _ := NewScorer(Config{APIKey: "k", Endpoint: srv.URL})
	_, err := s.Score(context.Background(), "https://x.example/", "text")
	if err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected api error message, got %v", err)
	}
}

func TestScoreEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	s, _ := NewScorer(Config{APIKey: "k", Endpoint: srv.URL})
	if _, err := s.Score(context.Background(), "https://x.example/", "text"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestParseSummaryFallback(t *testing.T) {
	longText := strings.Repeat("lorem ipsum ", 30)

	sum := parseSummary("this is not json", longText)
	if sum.AIOScore != 0 {
		t.Fatalf("fallback score = %v, want 0", sum.AIOScore)
	}
	if !strings.HasSuffix(sum.Summary, "...") {
		t.Fatalf("fallback summary %q not truncated", sum.Summary)
	}
	if len([]rune(sum.Summary)) != 123 {
		t.Fatalf("fallback summary length = %d, want 120 + ellipsis", len([]rune(sum.Summary)))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 120); got != "short" {
		t.Fatalf("truncate modified short input: %q", got)
	}
	if got := truncate(strings.Repeat("é", 10), 4); got != "éééé" {
		t.Fatalf("truncate not rune aware: %q", got)
	}
}
