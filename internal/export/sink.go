// Package export posts saved campaigns to an external sink as HMAC-signed JSON.
package export

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AngelCh415/smartreach/internal/lookup"
	"github.com/AngelCh415/smartreach/internal/models"
	"github.com/AngelCh415/smartreach/internal/utils"
)

const SignatureHeader = "X-Signature"

type Sink struct {
	url     string
	secret  string
	c       lookup.HTTPClient
	backoff utils.Backoff
}

// NewSink returns nil when url or secret is empty.
func NewSink(url, secret string, c lookup.HTTPClient) *Sink {
	if url == "" || secret == "" {
		return nil
	}
	b := utils.NewBackoff(200*time.Millisecond, 2)
	b.Retryable = lookup.RetryableHTTP
	return &Sink{url: url, secret: secret, c: c, backoff: b}
}

// Sign is the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Export delivers one saved campaign with its messages.
func (s *Sink) Export(ctx context.Context, d models.CampaignDetail) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode campaign %s: %w", d.ID, err)
	}
	sig := Sign(s.secret, b)
	return s.backoff.Do(ctx, func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(b))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(SignatureHeader, sig)
		req.Header.Set("X-Campaign-ID", d.ID)
		resp, err := s.c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return &lookup.StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		return nil
	})
}
