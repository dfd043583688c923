package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

const (
	metadataStatusPath    = "/internal/metadata-extraction-status"
	enhancementStatusPath = "/internal/enhancement-status"
)

// Client is the workers' reporting path back into the ingestion service.
// One client, one reused connection pool, bounded retry with exponential
// backoff. A report that exhausts its retries is dropped by the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL string, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (c *Client) ReportMetadata(ctx context.Context, rec entity.MetadataRecord) error {
	return c.post(ctx, metadataStatusPath, rec)
}

func (c *Client) ReportEnhancement(ctx context.Context, res entity.EnhancementResult) error {
	return c.post(ctx, enhancementStatusPath, res)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	url := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.doPost(ctx, url, body)
		if lastErr == nil {
			return nil
		}

		c.logger.Warn("callback attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("callback %s after %d attempts: %w: %v", path, c.maxRetries, entity.ErrDeliveryFailure, lastErr)
}

func (c *Client) doPost(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
