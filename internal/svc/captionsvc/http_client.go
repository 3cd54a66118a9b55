package captionsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	context_ "github.com/mkrupp/memeforge/internal/infra/context"
	"github.com/mkrupp/memeforge/internal/infra/logging"
)

const ExportIDHeader = "X-Request-ID"

var (
	ErrCaptionRejected = errors.New("caption request rejected")
	ErrCaptionNoURL    = errors.New("caption response carries no url")
)

// HTTPClientConfig holds configuration for the HTTP caption client.
type HTTPClientConfig struct {
	// CaptionURL is the endpoint for template captioning requests
	CaptionURL string `env:"CAPTION_URL" default:"http://localhost:8080/caption"`
}

// HTTPClient implements CaptionClient using HTTP requests to the captioning
// proxy.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ CaptionClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, http.DefaultClient will be used.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.captionsvc.http_client"),
		cfg:        cfg,
	}
}

type captionRequest struct {
	TemplateID string       `json:"template_id"`
	Boxes      []CaptionBox `json:"boxes"`
}

type captionResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	ErrorMessage string `json:"error_message"`
}

// Caption implements CaptionClient.Caption by posting the template and boxes
// as JSON to the configured proxy endpoint.
func (ht *HTTPClient) Caption(ctx context.Context, templateID string, boxes []CaptionBox) (string, error) {
	body, err := json.Marshal(captionRequest{TemplateID: templateID, Boxes: boxes})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ht.cfg.CaptionURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if exportID, ok := context_.ExportIDFromContext(ctx); ok {
		req.Header.Set(ExportIDHeader, exportID)
	}

	resp, err := ht.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrCaptionRejected, resp.StatusCode)
	}

	var parsed captionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if !parsed.Success {
		return "", fmt.Errorf("%w: %s", ErrCaptionRejected, parsed.ErrorMessage)
	}

	if parsed.Data.URL == "" {
		return "", ErrCaptionNoURL
	}

	ht.log.DebugContext(ctx, "template captioned",
		"templateID", templateID,
		"url", parsed.Data.URL,
	)

	return parsed.Data.URL, nil
}
