// Package notify delivers best-effort push notifications to participants who
// are not actively present in a room.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultwire/consult-server/internal/log"
)

// ErrMissingToken is returned when no device token is supplied.
var ErrMissingToken = errors.New("recipient push token required")

// Dispatcher sends a push notification to a device token.
type Dispatcher interface {
	Send(ctx context.Context, token, title, body string) error
}

// HTTPDispatcher posts notifications to an FCM-style HTTP endpoint.
type HTTPDispatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *zerolog.Logger
}

// NewHTTPDispatcher builds a dispatcher with a bounded request timeout.
func NewHTTPDispatcher(endpoint, apiKey string, timeout time.Duration, logger *zerolog.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &HTTPDispatcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		log:      logger,
	}
}

type pushMessage struct {
	Token        string           `json:"token"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers one notification. A timeout counts as a transport failure and
// may be retried by the caller.
func (d *HTTPDispatcher) Send(ctx context.Context, token, title, body string) error {
	if token == "" {
		return ErrMissingToken
	}

	payload, err := json.Marshal(pushMessage{
		Token: token,
		Notification: pushNotification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send notification: unexpected status %d", resp.StatusCode)
	}

	d.log.Debug().Str("title", title).Msg("push notification delivered")
	return nil
}
