package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"zonewatch/internal/dto"
	"zonewatch/internal/service"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const requestTimeout = 10 * time.Second

// Client sends frames to a remote model server and reads back detections.
//
// The server receives a multipart form with the JPEG in field "file" and
// answers {"detections": [{"label", "confidence", "box": {x1,y1,x2,y2}}]}
// with boxes in pixels.
type Client struct {
	inferenceURL string
	httpClient   *http.Client
}

func NewClient(inferenceURL string) *Client {
	return &Client{
		inferenceURL: inferenceURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Detect(ctx context.Context, frame service.Frame) ([]dto.RawDetection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(frame.Data)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if frame.Camera != "" {
		if err := writer.WriteField("camera", frame.Camera); err != nil {
			return nil, fmt.Errorf("write camera field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []dto.RawDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Detections, nil
}

// CheckHealth calls GET <inference url>/health.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(c.inferenceURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
