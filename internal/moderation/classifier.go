package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"os"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Verdict is the binary outcome of a content classification.
type Verdict string

const (
	VerdictSafe    Verdict = "safe"
	VerdictFlagged Verdict = "flagged"
)

// Classifier renders a safety verdict for one media file.
type Classifier interface {
	Classify(ctx context.Context, path string) (Verdict, error)
}

// NewFromConfig selects the classifier backend from configuration.
func NewFromConfig(cfg *config.Config) Classifier {
	if cfg.Moderation.Mode == "http" {
		timeout := time.Duration(cfg.Moderation.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return &HTTPClassifier{
			Endpoint: cfg.Moderation.Endpoint,
			Client:   &http.Client{Timeout: timeout},
		}
	}
	return &SimClassifier{
		FlagRatio: cfg.Moderation.FlagRatio,
		Delay:     time.Duration(cfg.Moderation.AnalysisDelay) * time.Second,
	}
}

// SimClassifier is a deterministic stand-in for a real moderation service.
// The verdict depends only on the file contents and the configured ratio, so
// repeated runs over the same rendition agree.
type SimClassifier struct {
	FlagRatio float64
	Delay     time.Duration
}

// Classify hashes the file and flags roughly FlagRatio of all inputs.
func (s *SimClassifier) Classify(ctx context.Context, path string) (Verdict, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", services.Wrap(services.ErrModeration, "moderation", "classify", "analysis interrupted", ctx.Err())
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify", "open rendition", err)
	}
	defer file.Close()

	hasher := fnv.New64a()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify", "hash rendition", err)
	}

	threshold := uint64(s.FlagRatio * 1000)
	if hasher.Sum64()%1000 < threshold {
		return VerdictFlagged, nil
	}
	return VerdictSafe, nil
}

// HTTPClassifier delegates to an external moderation endpoint.
type HTTPClassifier struct {
	Endpoint string
	Client   *http.Client
}

type classifyRequest struct {
	Path string `json:"path"`
}

type classifyResponse struct {
	Verdict string `json:"verdict"`
}

// Classify posts the rendition path and decodes the returned verdict.
func (h *HTTPClassifier) Classify(ctx context.Context, path string) (Verdict, error) {
	body, err := json.Marshal(classifyRequest{Path: path})
	if err != nil {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify", "call classifier", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify",
			fmt.Sprintf("classifier returned status %d", resp.StatusCode), nil)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrModeration, "moderation", "classify", "decode response", err)
	}

	switch Verdict(decoded.Verdict) {
	case VerdictSafe:
		return VerdictSafe, nil
	case VerdictFlagged:
		return VerdictFlagged, nil
	default:
		return "", services.Wrap(services.ErrModeration, "moderation", "classify",
			fmt.Sprintf("unknown verdict %q", decoded.Verdict), nil)
	}
}
