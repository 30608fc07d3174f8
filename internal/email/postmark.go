package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

type Client struct {
	mu          sync.RWMutex
	serverToken string
	fromEmail   string
	appName     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, appName string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		appName:     appName,
		httpClient:  http.DefaultClient,
	}
	if c.appName == "" {
		c.appName = "ParentPal"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverToken != ""
}

// UpdateConfig hot-reloads the sending credentials.
func (c *Client) UpdateConfig(serverToken, fromEmail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverToken = serverToken
	c.fromEmail = fromEmail
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendVerificationCode sends a six-digit sign-in code for login,
// registration, or invitation.
func (c *Client) SendVerificationCode(toEmail, code, purpose, householdName string) error {
	c.mu.RLock()
	token := c.serverToken
	from := c.fromEmail
	app := c.appName
	c.mu.RUnlock()

	if token == "" {
		return fmt.Errorf("email client not configured: missing server token")
	}

	var subject, action string
	switch purpose {
	case "login":
		subject = fmt.Sprintf("Sign in to %s", app)
		action = "sign in"
	case "register":
		subject = fmt.Sprintf("Welcome to %s", app)
		action = "complete your registration"
	case "invite":
		subject = fmt.Sprintf("You've been invited to %s on %s", householdName, app)
		action = "accept your invitation"
	default:
		subject = fmt.Sprintf("Your %s code", app)
		action = "continue"
	}

	textBody := fmt.Sprintf("Enter this code to %s:\n\n%s\n\nThe code expires in 15 minutes.", action, code)
	htmlBody := fmt.Sprintf(
		`<p>Enter this code to %s:</p><p style="font-size:2em;letter-spacing:0.2em"><strong>%s</strong></p><p>The code expires in 15 minutes.</p>`,
		action, code,
	)

	payload := postmarkEmail{
		From:     from,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
