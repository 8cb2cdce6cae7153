package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/ghibli-blocker/pkg/logger"
	"github.com/user/ghibli-blocker/pkg/metrics"
)

const DefaultLabel = "Ghibli"

type predictRequest struct {
	ImageURL string `json:"image_url"`
}

type predictResponse struct {
	PredictedClass string `json:"predicted_class"`
}

// HTTPClassifier asks a remote model whether an image matches a label.
type HTTPClassifier struct {
	endpoint string
	label    string
	http     *http.Client
	logger   *slog.Logger
}

// NewHTTPClassifier builds a classifier for endpoint. A nil httpClient gets
// a default client with the given timeout; a zero timeout leaves the
// request bounded only by its context.
func NewHTTPClassifier(endpoint, label string, timeout time.Duration, httpClient *http.Client) *HTTPClassifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if label == "" {
		label = DefaultLabel
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		label:    label,
		http:     httpClient,
		logger:   logger.Component("classifier"),
	}
}

// Classify sends one request per call. Every failure reads as "not flagged".
func (c *HTTPClassifier) Classify(ctx context.Context, imageURL string) bool {
	start := time.Now()
	class, err := c.predict(ctx, imageURL)
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierRequests.WithLabelValues("error").Inc()
		c.logger.Error("Classification failed", "image_url", imageURL, "error", err)
		return false
	}

	flagged := class == c.label
	if flagged {
		metrics.ClassifierRequests.WithLabelValues("flagged").Inc()
	} else {
		metrics.ClassifierRequests.WithLabelValues("clear").Inc()
	}
	c.logger.Debug("Image classified", "image_url", imageURL, "predicted_class", class, "flagged", flagged)
	return flagged
}

func (c *HTTPClassifier) predict(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(predictRequest{ImageURL: imageURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("predict failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode predict response: %w", err)
	}
	return out.PredictedClass, nil
}
