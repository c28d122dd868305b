package moderation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func TestSimClassifierDeterministic(t *testing.T) {
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "clip.mp4"), []byte("same bytes"))
	classifier := &SimClassifier{FlagRatio: 0.5}

	first, err := classifier.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	second, err := classifier.Classify(context.Background(), path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if first != second {
		t.Fatalf("verdict changed between runs: %s vs %s", first, second)
	}
}

func TestSimClassifierRatioExtremes(t *testing.T) {
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "clip.mp4"), []byte("payload"))

	always := &SimClassifier{FlagRatio: 1}
	verdict, err := always.Classify(context.Background(), path)
	if err != nil || verdict != VerdictFlagged {
		t.Fatalf("expected flagged at ratio 1, got %s err=%v", verdict, err)
	}

	never := &SimClassifier{FlagRatio: 0}
	verdict, err = never.Classify(context.Background(), path)
	if err != nil || verdict != VerdictSafe {
		t.Fatalf("expected safe at ratio 0, got %s err=%v", verdict, err)
	}
}

func TestSimClassifierMissingFile(t *testing.T) {
	classifier := &SimClassifier{}
	_, err := classifier.Classify(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	if !errors.Is(err, services.ErrModeration) {
		t.Fatalf("expected ErrModeration, got %v", err)
	}
}

func TestHTTPClassifierVerdicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verdict":"flagged"}`))
	}))
	defer server.Close()

	classifier := &HTTPClassifier{Endpoint: server.URL, Client: server.Client()}
	verdict, err := classifier.Classify(context.Background(), "/some/rendition.mp4")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if verdict != VerdictFlagged {
		t.Fatalf("expected flagged, got %s", verdict)
	}
}

func TestHTTPClassifierRejectsUnknownVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"verdict":"maybe"}`))
	}))
	defer server.Close()

	classifier := &HTTPClassifier{Endpoint: server.URL, Client: server.Client()}
	if _, err := classifier.Classify(context.Background(), "/x.mp4"); !errors.Is(err, services.ErrModeration) {
		t.Fatalf("expected ErrModeration, got %v", err)
	}
}

func TestHTTPClassifierUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier := &HTTPClassifier{Endpoint: server.URL, Client: server.Client()}
	if _, err := classifier.Classify(context.Background(), "/x.mp4"); !errors.Is(err, services.ErrModeration) {
		t.Fatalf("expected ErrModeration, got %v", err)
	}
}
