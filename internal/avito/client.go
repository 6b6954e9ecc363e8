package avito

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Avito messenger API with a client-credentials token.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Token exchanges the client credentials for a bearer token.
func (c *Client) Token(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("avito token response had no access_token")
	}
	return tr.AccessToken, nil
}

type selfResponse struct {
	ID int64 `json:"id"`
}

// SelfID returns the account id the token belongs to.
func (c *Client) SelfID(ctx context.Context, token string) (string, error) {
	var sr selfResponse
	if err := c.get(ctx, token, "/core/v1/accounts/self", &sr); err != nil {
		return "", err
	}
	if sr.ID == 0 {
		return "", fmt.Errorf("avito self response had no account id")
	}
	return fmt.Sprintf("%d", sr.ID), nil
}

type Chat struct {
	ID      string `json:"id"`
	Context struct {
		Value struct {
			Title string `json:"title"`
		} `json:"value"`
	} `json:"context"`
	Users []ChatUser `json:"users"`
}

type ChatUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type chatsResponse struct {
	Chats []Chat `json:"chats"`
}

// Chats lists up to 50 chats of the account, read and unread alike.
func (c *Client) Chats(ctx context.Context, token, userID string) ([]Chat, error) {
	path := fmt.Sprintf("/messenger/v2/accounts/%s/chats?unread_only=false&limit=50", userID)
	var cr chatsResponse
	if err := c.get(ctx, token, path, &cr); err != nil {
		return nil, err
	}
	return cr.Chats, nil
}

type Message struct {
	ID       string `json:"id"`
	AuthorID int64  `json:"author_id"`
	Content  struct {
		Text string `json:"text"`
	} `json:"content"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// Messages returns the 20 most recent messages of a chat, newest first.
func (c *Client) Messages(ctx context.Context, token, userID, chatID string) ([]Message, error) {
	path := fmt.Sprintf("/messenger/v3/accounts/%s/chats/%s/messages/?limit=20", userID, chatID)
	var mr messagesResponse
	if err := c.get(ctx, token, path, &mr); err != nil {
		return nil, err
	}
	return mr.Messages, nil
}

func (c *Client) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("avito request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read avito response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse avito response: %w", err)
	}
	return nil
}

// APIError carries the upstream status and body so handlers can relay them.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("avito api: status %d: %s", e.StatusCode, e.Body)
}
