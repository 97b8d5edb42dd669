package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lingochat/internal/domain"
)

// Client is the REST adapter to the lingochat backend. It implements
// MessageAPI, TranslationAPI, SettingsStore, and Identity for a logged-in
// user.
type Client struct {
	baseURL string
	http    *http.Client

	token string
	self  *domain.User
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

var (
	_ MessageAPI     = (*Client)(nil)
	_ TranslationAPI = (*Client)(nil)
	_ SettingsStore  = (*Client)(nil)
	_ Identity       = (*Client)(nil)
)

type authResponse struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

// Login authenticates and stores the bearer token and user identity for
// subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var res authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return err
	}
	c.token = res.AccessToken
	c.self = res.User
	return nil
}

// Register creates an account and logs in.
func (c *Client) Register(ctx context.Context, username, fullName, password string) error {
	var res authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"fullName": fullName,
		"password": password,
	}, &res)
	if err != nil {
		return err
	}
	c.token = res.AccessToken
	c.self = res.User
	return nil
}

// Token returns the bearer token obtained at login.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) CurrentUserID() int64 {
	if c.self == nil {
		return 0
	}
	return c.self.ID
}

// Contacts lists every other user.
func (c *Client) Contacts(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/messages/contacts", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) FetchHistory(ctx context.Context, counterpartID int64) ([]*domain.Message, error) {
	var msgs []*domain.Message
	path := fmt.Sprintf("/api/messages/%d", counterpartID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SubmitMessage(ctx context.Context, counterpartID int64, draft MessageDraft) (*domain.Message, error) {
	var msg domain.Message
	path := fmt.Sprintf("/api/messages/send/%d", counterpartID)
	if err := c.doJSON(ctx, http.MethodPost, path, draft, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	var res struct {
		Language string `json:"language"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/translate/detect", map[string]string{"q": text}, &res); err != nil {
		return "", err
	}
	return res.Language, nil
}

func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	var res struct {
		TranslatedText string `json:"translatedText"`
	}
	body := map[string]string{"q": text, "source": source, "target": target}
	if err := c.doJSON(ctx, http.MethodPost, "/api/translate", body, &res); err != nil {
		return "", err
	}
	return res.TranslatedText, nil
}

func (c *Client) PreferredLanguage(ctx context.Context, userID int64) (string, error) {
	var res struct {
		Settings struct {
			PreferredLanguage string `json:"preferredLanguage"`
		} `json:"settings"`
	}
	path := fmt.Sprintf("/api/settings/user/%d", userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return "", err
	}
	if res.Settings.PreferredLanguage == "" {
		return domain.DefaultLanguage, nil
	}
	return res.Settings.PreferredLanguage, nil
}

func (c *Client) Load(ctx context.Context) (ClientSettings, error) {
	var res struct {
		Settings domain.UserSettings `json:"settings"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/settings", nil, &res); err != nil {
		return ClientSettings{}, err
	}
	return ClientSettings{
		AutoTranslate: res.Settings.AutoTranslate,
		SoundEnabled:  res.Settings.SoundEnabled,
	}, nil
}

func (c *Client) Save(ctx context.Context, s ClientSettings) error {
	body := map[string]bool{
		"autoTranslateEnabled": s.AutoTranslate,
		"soundEnabled":         s.SoundEnabled,
	}
	return c.doJSON(ctx, http.MethodPut, "/api/settings", body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
