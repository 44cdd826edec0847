// Package webhook signs and delivers media-buy delivery-report payloads to
// a buyer's registered or inline-authenticated endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/golang-jwt/jwt/v5"
)

// Authentication describes how a delivery payload's bearer token is
// produced for a single send: either a static token from a registered
// PushNotificationConfig, or credentials minted fresh per delivery.
type Authentication struct {
	Type  string // "bearer" | "jwt"
	Token string // used as-is when Type == "bearer"
}

// Payload is the delivery-report body sent to a buyer's webhook.
type Payload struct {
	MediaBuyID       string               `json:"media_buy_id"`
	NotificationType string               `json:"notification_type"`
	SequenceNumber   int                  `json:"sequence_number"`
	NextExpectedAt   time.Time            `json:"next_expected_at"`
	PartialData      bool                 `json:"partial_data"`
	UnavailableCount int                  `json:"unavailable_count"`
	Rows             []adapter.DeliveryRow `json:"rows"`
}

// Sender delivers signed payloads over HTTP.
type Sender struct {
	client    *http.Client
	jwtSecret string
	jwtTTL    time.Duration
}

// New builds a Sender. jwtSecret signs ephemeral bearer tokens minted when
// the destination has no static token configured; timeout bounds each send.
func New(jwtSecret string, jwtTTL, timeout time.Duration) *Sender {
	return &Sender{
		client:    &http.Client{Timeout: timeout},
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

// Deliver POSTs payload to url, authenticating per auth. A "jwt" auth type
// (or a bearer auth lacking a static token) mints a short-lived HS256 token
// signed with the sender's configured secret.
func (s *Sender) Deliver(ctx context.Context, url string, auth Authentication, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := s.bearerToken(auth, payload.MediaBuyID)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sender) bearerToken(auth Authentication, mediaBuyID string) (string, error) {
	if auth.Type == "bearer" && auth.Token != "" {
		return auth.Token, nil
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   mediaBuyID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign webhook token: %w", err)
	}
	return signed, nil
}
