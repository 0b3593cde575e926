package oppdrag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenProvider acquires bearer tokens for the mainframe gateway
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// clientCredentialsProvider fetches tokens with the OAuth2 client-credentials
// grant and caches them until shortly before expiry.
type clientCredentialsProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	leeway       time.Duration
	httpClient   *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClientCredentialsProvider creates a caching token provider
func NewClientCredentialsProvider(cfg *ClientConfig) TokenProvider {
	cfg = cfg.withDefaults()
	return &clientCredentialsProvider{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		leeway:       cfg.TokenLeeway,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Token implements TokenProvider
func (p *clientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.expiresAt.Add(-p.leeway)) {
		return p.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("oppdrag: failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oppdrag: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oppdrag: token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("oppdrag: failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("oppdrag: token endpoint returned an empty token")
	}

	p.token = body.AccessToken
	p.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return p.token, nil
}
