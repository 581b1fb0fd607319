// Package provider wraps the self-hosted flow-ai media server and the SMS
// gateway. These are the downstream paid collaborators: handlers call them
// after the eligibility check and only bill on success.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrProviderBusy maps the media server's 503 while a generation is running.
var ErrProviderBusy = errors.New("media server busy")

type Client struct {
	mediaURL string
	smsURL   string
	client   *http.Client
}

func NewClient(mediaURL, smsURL string) *Client {
	return &Client{
		mediaURL: mediaURL,
		smsURL:   smsURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type GenerateImageRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Steps          int     `json:"num_inference_steps,omitempty"`
	GuidanceScale  float64 `json:"guidance_scale,omitempty"`
}

type GenerateImageResponse struct {
	Image          string  `json:"image"` // base64 PNG
	GenerationTime float64 `json:"generation_time"`
}

// GenerateImage renders one image on the flow-ai server.
func (c *Client) GenerateImage(ctx context.Context, req GenerateImageRequest) (*GenerateImageResponse, error) {
	var resp GenerateImageResponse
	if err := c.post(ctx, c.mediaURL+"/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type VoiceoverRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

type VoiceoverResponse struct {
	Audio          string  `json:"audio"` // base64 WAV
	GenerationTime float64 `json:"generation_time"`
}

// GenerateVoiceover synthesizes speech on the flow-ai server.
func (c *Client) GenerateVoiceover(ctx context.Context, req VoiceoverRequest) (*VoiceoverResponse, error) {
	var resp VoiceoverResponse
	if err := c.post(ctx, c.mediaURL+"/voiceover", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type SMSRequest struct {
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

type SMSResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// SendSMS dispatches a campaign through the SMS gateway.
func (c *Client) SendSMS(ctx context.Context, req SMSRequest) (*SMSResponse, error) {
	if c.smsURL == "" {
		return nil, errors.New("sms gateway not configured")
	}
	var resp SMSResponse
	if err := c.post(ctx, c.smsURL+"/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health probes the media server.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mediaURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return ErrProviderBusy
	}
	if resp.StatusCode != http.StatusOK {
		// Provider bodies are not surfaced to clients; status is enough.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider request failed: status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
