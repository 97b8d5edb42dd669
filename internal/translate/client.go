// Package translate is a small client for a LibreTranslate-compatible API.
// All calls are best-effort: callers are expected to fall back to the
// untranslated text on any error.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("translation service unavailable")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIKey returns a copy of the client using a different API key. Used
// when a user configured a personal key in their settings.
func (c *Client) WithAPIKey(apiKey string) *Client {
	if apiKey == "" {
		return c
	}
	cp := *c
	cp.apiKey = apiKey
	return &cp
}

type detectResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Detect returns the most likely language code of the given text.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	body := map[string]string{"q": text}
	if c.apiKey != "" {
		body["api_key"] = c.apiKey
	}
	var candidates []detectResponse
	if err := c.post(ctx, "/detect", body, &candidates); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: empty detect response", ErrUnavailable)
	}
	return candidates[0].Language, nil
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate translates text from source to target language.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	body := map[string]string{
		"q":      text,
		"source": source,
		"target": target,
		"format": "text",
	}
	if c.apiKey != "" {
		body["api_key"] = c.apiKey
	}
	var res translateResponse
	if err := c.post(ctx, "/translate", body, &res); err != nil {
		return "", err
	}
	if res.TranslatedText == "" {
		return "", fmt.Errorf("%w: empty translation", ErrUnavailable)
	}
	return res.TranslatedText, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}
