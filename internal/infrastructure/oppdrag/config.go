package oppdrag

import (
	"fmt"
	"time"
)

// ClientConfig holds the connection settings for the payment mainframe
type ClientConfig struct {
	BaseURL      string
	SendPath     string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	TokenLeeway  time.Duration
}

// Validate checks that the config is complete
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("oppdrag: base URL is required")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("oppdrag: token URL is required")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("oppdrag: client credentials are required")
	}
	return nil
}

func (c *ClientConfig) withDefaults() *ClientConfig {
	out := *c
	if out.SendPath == "" {
		out.SendPath = "/api/v1/oppdrag"
	}
	if out.Timeout == 0 {
		out.Timeout = 30 * time.Second
	}
	if out.TokenLeeway == 0 {
		out.TokenLeeway = 30 * time.Second
	}
	return &out
}
