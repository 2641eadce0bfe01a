package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"modchat/internal/models"
)

// Classifier scores a normalized image. The process holds one shared
// instance injected into the pipeline; implementations must be safe for
// concurrent calls.
type Classifier interface {
	Classify(ctx context.Context, t *Tensor) ([]models.Prediction, error)
}

// HTTPClassifier calls an external model server over HTTP.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifier returns a classifier client for the given endpoint.
func NewHTTPClassifier(endpoint string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type classifyRequest struct {
	Shape []int  `json:"shape"`
	Data  string `json:"data"` // base64 row-major RGB bytes
}

type classifyResponse struct {
	Predictions []models.Prediction `json:"predictions"`
}

// Classify posts the tensor to the model server and returns its ranked
// label/score pairs unmodified.
func (c *HTTPClassifier) Classify(ctx context.Context, t *Tensor) ([]models.Prediction, error) {
	body, err := json.Marshal(classifyRequest{
		Shape: []int{InputSize, InputSize, Channels},
		Data:  base64.StdEncoding.EncodeToString(t.Pix),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model server returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Predictions) == 0 {
		return nil, errors.New("model server returned no predictions")
	}
	return parsed.Predictions, nil
}
