package oppdrag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
)

// Severity codes returned by the mainframe. 00 is accepted, 04 is accepted
// with a warning, everything above is a rejection of the payload itself.
const (
	alvorlighetsgradOK      = "00"
	alvorlighetsgradWarning = "04"
)

// HTTPKlient implements iverksettelse.Klient against the payment mainframe's
// HTTP gateway. Every failure is classified into the closed Feilkategori
// taxonomy so the dispatcher can decide between retry and dead-letter without
// inspecting transport details.
type HTTPKlient struct {
	config     *ClientConfig
	tokens     TokenProvider
	httpClient *http.Client
}

// NewHTTPKlient creates a new mainframe client
func NewHTTPKlient(cfg *ClientConfig, tokens TokenProvider) (*HTTPKlient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &HTTPKlient{
		config:     cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type sendResponse struct {
	Alvorlighetsgrad string `json:"alvorlighetsgrad"`
	Status           string `json:"status"`
	Melding          string `json:"melding"`
	KvitteringID     string `json:"kvittering_id"`
}

// Send implements iverksettelse.Klient
func (k *HTTPKlient) Send(ctx context.Context, oppdrag *iverksettelse.Oppdrag) (*iverksettelse.Kvittering, error) {
	payload, err := json.Marshal(oppdrag)
	if err != nil {
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilSerialisering,
			"failed to serialize oppdrag", err)
	}

	token, err := k.tokens.Token(ctx)
	if err != nil {
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilTokenhenting,
			"failed to acquire gateway token", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		k.config.BaseURL+k.config.SendPath, bytes.NewReader(payload))
	if err != nil {
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilUkjent,
			"failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Ekstern-Ref", oppdrag.EksternRef)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		// Transport failure: the request may or may not have been applied.
		// The remote deduplicates on EksternRef, so a retry is safe.
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilUkjent,
			"request to payment mainframe failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilUkjent,
			"failed to read mainframe response", err)
	}

	return k.classify(resp.StatusCode, body)
}

func (k *HTTPKlient) classify(statusCode int, body []byte) (*iverksettelse.Kvittering, error) {
	switch {
	case statusCode >= 500:
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilUkjent,
			fmt.Sprintf("mainframe returned status %d", statusCode), nil)
	case statusCode >= 400:
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilStatusAvvist,
			fmt.Sprintf("mainframe rejected the request with status %d: %s", statusCode, string(body)), nil)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilUkjent,
			"mainframe response could not be parsed", err)
	}

	switch parsed.Alvorlighetsgrad {
	case alvorlighetsgradOK, alvorlighetsgradWarning:
	default:
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilAlvorlighetsgrad,
			fmt.Sprintf("mainframe rejected the payload with severity %s: %s",
				parsed.Alvorlighetsgrad, parsed.Melding), nil)
	}

	if parsed.Status != "" && parsed.Status != "OK" {
		return nil, iverksettelse.NyDispatchfeil(iverksettelse.FeilStatusAvvist,
			fmt.Sprintf("mainframe returned status %s: %s", parsed.Status, parsed.Melding), nil)
	}

	return &iverksettelse.Kvittering{
		EksternKvitteringID: parsed.KvitteringID,
		MottattAt:           time.Now().UTC(),
	}, nil
}
