// Package cloudapi sends messages and uploads media through the WhatsApp
// Business Cloud API.
package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-aiwa/pkg/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v21.0"
	DefaultTimeout    = 30 * time.Second
)

type Config struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
	// SendRate is the number of requests per second; 0 disables limiting.
	SendRate float64
}

// APIError is a non-2xx answer of the Graph API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cloud api returned status %d", e.Status)
	}
	return fmt.Sprintf("cloud api returned status %d: %s (code %d)", e.Status, e.Message, e.Code)
}

// Client implements domainOutbound.IOutboundClient. Requests are never
// retried: a send that timed out may already have been delivered.
type Client struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(0)
	client.SetAuthToken(cfg.AccessToken)

	var limiter *rate.Limiter
	if cfg.SendRate > 0 {
		burst := int(cfg.SendRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), burst)
	}

	return &Client{cfg: cfg, http: client, limiter: limiter}
}

func (c *Client) endpoint(resource string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID, resource)
}

func (c *Client) SendText(ctx context.Context, recipientID, body string) error {
	return c.send(ctx, "text", map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                recipientID,
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": body},
	})
}

func (c *Client) SendImage(ctx context.Context, recipientID, mediaID string) error {
	return c.send(ctx, "image", map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                recipientID,
		"type":              "image",
		"image":             map[string]any{"id": mediaID},
	})
}

func (c *Client) SendDocument(ctx context.Context, recipientID, mediaID, filename string) error {
	return c.send(ctx, "document", map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                recipientID,
		"type":              "document",
		"document":          map[string]any{"id": mediaID, "filename": filename},
	})
}

// UploadMedia uploads the bytes and returns the media id to send by.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", filename, mimeType, bytes.NewReader(data)).
		SetMultipartFormData(map[string]string{
			"messaging_product": "whatsapp",
			"type":              mimeType,
		}).
		Post(c.endpoint("media"))
	if err != nil {
		metrics.OutboundTotal.WithLabelValues("upload", "error").Inc()
		return "", fmt.Errorf("upload media: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		metrics.OutboundTotal.WithLabelValues("upload", "error").Inc()
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		metrics.OutboundTotal.WithLabelValues("upload", "error").Inc()
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.ID == "" {
		metrics.OutboundTotal.WithLabelValues("upload", "error").Inc()
		return "", fmt.Errorf("upload response has no media id")
	}

	metrics.OutboundTotal.WithLabelValues("upload", "ok").Inc()
	logrus.WithFields(logrus.Fields{
		"filename": filename,
		"mime":     mimeType,
		"bytes":    len(data),
	}).Info("[CLOUDAPI] Media uploaded")
	return out.ID, nil
}

func (c *Client) send(ctx context.Context, kind string, payload map[string]any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.endpoint("messages"))
	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		metrics.OutboundTotal.WithLabelValues(kind, "error").Inc()
		logrus.WithError(err).Errorf("[CLOUDAPI] Failed to send %s message", kind)
		return fmt.Errorf("send %s: %w", kind, err)
	}

	metrics.OutboundTotal.WithLabelValues(kind, "ok").Inc()
	logrus.Debugf("[CLOUDAPI] %s message sent", kind)
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	var body struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != nil {
		apiErr.Code = body.Error.Code
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
