package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medical-access-ledger/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("identity service not configured")
	ErrUnauthorized  = errors.New("identity service rejected token")
	ErrUpstream      = errors.New("identity service upstream error")
)

// Config del servicio de identidad (sesiones de wallet).
// BaseURL y APIKey vienen de IDENTITY_BASE_URL / IDENTITY_API_KEY.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: nombre del header donde se manda la API key.
	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

type Client struct {
	http *httpclient.Client
}

// Session es lo que el servicio devuelve para un token válido.
type Session struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
	Issuer    string `json:"issuer"`
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	hc, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	hc.Headers[h] = strings.TrimSpace(cfg.APIKey)

	return &Client{http: hc}, nil
}

// VerifyToken pregunta al servicio a qué dirección pertenece el token.
func (c *Client) VerifyToken(ctx context.Context, token string) (Session, error) {
	const verifyPath = "/v1/sessions/verify"

	headers := map[string]string{"Authorization": "Bearer " + token}

	var out Session
	err := c.http.DoJSON(ctx, http.MethodPost, verifyPath, headers, map[string]string{"token": token}, &out)
	if err != nil {
		if httpclient.IsUnauthorized(err) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out, nil
}
