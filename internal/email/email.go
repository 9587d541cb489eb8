package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Purposes a verification code can be issued for.
const (
	PurposeRegister = "register"
	PurposeReset    = "reset"
)

type Config struct {
	BaseURL    string
	Username   string
	Password   string
	TemplateID int
	// Allowlist limits delivery to these addresses or @domains. Empty allows all.
	Allowlist []string
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ParseAllowlist splits a comma-separated list of addresses and @domains.
func ParseAllowlist(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Client) allowed(addr string) bool {
	if len(c.config.Allowlist) == 0 {
		return true
	}
	addr = strings.ToLower(addr)
	for _, entry := range c.config.Allowlist {
		if strings.HasPrefix(entry, "@") && strings.HasSuffix(addr, entry) {
			return true
		}
		if entry == addr {
			return true
		}
	}
	return false
}

type txRequest struct {
	SubscriberEmail string            `json:"subscriber_email"`
	TemplateID      int               `json:"template_id"`
	Data            map[string]string `json:"data"`
	ContentType     string            `json:"content_type"`
}

func subject(purpose string) string {
	if purpose == PurposeReset {
		return "[VSS] 비밀번호 재설정 인증 코드"
	}
	return "[VSS] 이메일 인증 코드"
}

// SendVerificationCode mails a one-time code through listmonk's
// transactional API.
func (c *Client) SendVerificationCode(ctx context.Context, toEmail, code, purpose string) error {
	if c.config.BaseURL == "" {
		slog.Info("email not configured, verification code not sent", "email", toEmail, "purpose", purpose, "code", code)
		return nil
	}
	if !c.allowed(toEmail) {
		slog.Warn("email recipient not in allowlist", "email", toEmail)
		return nil
	}

	body := txRequest{
		SubscriberEmail: toEmail,
		TemplateID:      c.config.TemplateID,
		Data: map[string]string{
			"code":    code,
			"purpose": purpose,
			"subject": subject(purpose),
			"minutes": "10",
		},
		ContentType: "html",
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tx", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listmonk returned status %d", resp.StatusCode)
	}

	return nil
}
