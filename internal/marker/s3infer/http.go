package s3infer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Doer abstracts the HTTP transport for testability; *http.Client satisfies
// it directly.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClassifier calls an external inference service over HTTP. The service
// owns the model weights and versioning; this adapter only moves encoded
// windows out and probability matrices back. One POST carries a whole
// batch, amortizing transport overhead across windows.
type HTTPClassifier struct {
	baseURL string
	labels  []string
	client  Doer
}

// NewHTTPClassifier builds an adapter for the service at baseURL which
// classifies over the given label set. Pass nil to use a default client
// with a 30 s timeout.
func NewHTTPClassifier(baseURL string, labels []string, client Doer) *HTTPClassifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClassifier{baseURL: baseURL, labels: labels, client: client}
}

// Labels returns the label set the remote model was trained on.
func (c *HTTPClassifier) Labels() []string { return c.labels }

// inferRequest is the wire format of one batched inference call.
type inferRequest struct {
	Windows []inferWindow `json:"windows"`
}

type inferWindow struct {
	SegIDs   []int       `json:"seg_ids"`
	Frames   int         `json:"frames"`
	Features [][]float64 `json:"features"`
}

type inferResponse struct {
	Matrices [][][]float64 `json:"matrices"`
}

// Infer posts the encoded batch to the service and decodes one probability
// matrix per window. Normalization matches the training pipeline, so it is
// applied here rather than trusting every caller to remember.
func (c *HTTPClassifier) Infer(ctx context.Context, batch []Encoded) ([]ProbMatrix, error) {
	req := inferRequest{Windows: make([]inferWindow, len(batch))}
	for i, e := range batch {
		features := make([][]float64, len(e.Features))
		for s, row := range e.Features {
			cp := append([]float64(nil), row...)
			Normalize(cp)
			features[s] = cp
		}
		req.Windows[i] = inferWindow{SegIDs: e.SegIDs, Frames: e.Frames, Features: features}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode inference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inference call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, msg)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if len(out.Matrices) != len(batch) {
		return nil, fmt.Errorf("inference service returned %d matrices for %d windows", len(out.Matrices), len(batch))
	}

	matrices := make([]ProbMatrix, len(batch))
	for i, m := range out.Matrices {
		if len(m) != len(batch[i].SegIDs) {
			return nil, fmt.Errorf("window %d: %d probability rows for %d segments", i, len(m), len(batch[i].SegIDs))
		}
		for r, row := range m {
			if len(row) != len(c.labels) {
				return nil, fmt.Errorf("window %d row %d: %d probabilities for %d labels", i, r, len(row), len(c.labels))
			}
		}
		matrices[i] = ProbMatrix{
			SegIDs: batch[i].SegIDs,
			Labels: c.labels,
			P:      m,
		}
	}
	return matrices, nil
}
