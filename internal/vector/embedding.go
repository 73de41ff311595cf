package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cwaproj/cwa/internal/cwaerr"
)

// MaxBatchSize caps how many texts a single Embed call will send upstream.
const MaxBatchSize = 32

// EmbeddingClient is the narrow capability needed to turn text into vectors.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HTTPEmbeddingClient calls an HTTP embedding endpoint that accepts
// {"input": [...]} and returns {"embeddings": [[...], ...]}.
type HTTPEmbeddingClient struct {
	URL    string
	Client *http.Client
}

// NewHTTPEmbeddingClient builds a client with a bounded request timeout.
func NewHTTPEmbeddingClient(url string, timeout time.Duration) *HTTPEmbeddingClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPEmbeddingClient{URL: url, Client: &http.Client{Timeout: timeout}}
}

type embedRequest struct {
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed batches texts (capped at MaxBatchSize per upstream call) and returns
// one vector per input text, in order. A timeout or transport failure
// surfaces as cwaerr.Unavailable; callers should enqueue affected writes for
// background backfill rather than fail the whole request.
func (c *HTTPEmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *HTTPEmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Input: texts})
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Internal, "encoding embedding request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Internal, "building embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "calling embedding service", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cwaerr.Newf(cwaerr.Unavailable, "embedding service returned %s", resp.Status)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, cwaerr.Wrap(cwaerr.Internal, "decoding embedding response", err)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, cwaerr.Newf(cwaerr.Internal, "embedding service returned %d vectors for %d texts", len(decoded.Embeddings), len(texts))
	}
	return decoded.Embeddings, nil
}
