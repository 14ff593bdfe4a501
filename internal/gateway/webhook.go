package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventCheckoutCompleted is the only event type the webhook handler acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// DefaultSignatureTolerance bounds how stale a signed webhook may be before
// it is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleSignature   = errors.New("webhook signature timestamp outside tolerance")
)

// Event is a signed notification delivered by the provider. Delivery is
// at-least-once and unordered with respect to other events.
type Event struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Session Session `json:"-"`
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Session `json:"object"`
	} `json:"data"`
}

// ParseEvent verifies the signature header against the raw payload and only
// then decodes the event. The header carries a unix timestamp and an
// HMAC-SHA256 of "<timestamp>.<payload>": "t=<unix>,v1=<hex>".
func ParseEvent(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (Event, error) {
	if sigHeader == "" {
		return Event{}, ErrMissingSignature
	}
	timestamp, signature, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return Event{}, err
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return Event{}, ErrStaleSignature
	}

	expected := computeSignature(payload, timestamp, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Event{}, ErrInvalidSignature
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Event{}, fmt.Errorf("decode webhook event: %w", err)
	}
	return Event{
		ID:      envelope.ID,
		Type:    envelope.Type,
		Session: envelope.Data.Object,
	}, nil
}

// SignPayload produces a signature header for a payload; used by tests and
// local tooling that simulate provider deliveries.
func SignPayload(payload []byte, secret string, now time.Time) string {
	timestamp := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", timestamp, computeSignature(payload, timestamp, secret))
}

func parseSignatureHeader(header string) (timestamp int64, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", ErrInvalidSignature
			}
		case "v1":
			signature = value
		}
	}
	if timestamp == 0 || signature == "" {
		return 0, "", ErrInvalidSignature
	}
	return timestamp, signature, nil
}

func computeSignature(payload []byte, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
