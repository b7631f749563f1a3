// Package payments holds the narrow surface consumed from the payment
// provider: checkout-link creation and webhook ingestion.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultwire/consult-server/internal/core"
	"github.com/consultwire/consult-server/internal/log"
)

// Client creates checkout links through the payment provider's HTTP API.
// Implements core.Checkout.
type Client struct {
	url    string
	apiKey string
	client *http.Client
	log    *zerolog.Logger
}

// NewClient builds a checkout client with a bounded request timeout.
func NewClient(url, apiKey string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		log:    logger,
	}
}

type checkoutRequest struct {
	Data checkoutData `json:"data"`
}

type checkoutData struct {
	Type       string             `json:"type"`
	Attributes checkoutAttributes `json:"attributes"`
}

type checkoutAttributes struct {
	// CustomPrice is in cents.
	CustomPrice  int64              `json:"custom_price"`
	CheckoutData checkoutCustomData `json:"checkout_data"`
}

type checkoutCustomData struct {
	Email  string         `json:"email,omitempty"`
	Custom RoomCustomData `json:"custom"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout creates a checkout link carrying the consultation attributes
// as custom data, so the completed-order webhook can rebuild the room.
func (c *Client) CreateCheckout(ctx context.Context, req *core.PaymentLinkRequest) (string, error) {
	body, err := json.Marshal(checkoutRequest{
		Data: checkoutData{
			Type: "checkouts",
			Attributes: checkoutAttributes{
				CustomPrice: int64(req.SpecialistPrice * 100),
				CheckoutData: checkoutCustomData{
					Email: req.UserEmail,
					Custom: RoomCustomData{
						RoomID:               req.RoomID,
						SpecialistID:         req.SpecialistID,
						SpecialistFirstName:  req.SpecialistFirstName,
						SpecialistLastName:   req.SpecialistLastName,
						SpecialistProfilePic: req.SpecialistProfilePic,
						SpecialistPushToken:  req.SpecialistPushToken,
						UserID:               req.UserID,
						UserFirstName:        req.UserFirstName,
						UserProfilePic:       req.UserProfilePic,
						UserPushToken:        req.UserPushToken,
						ConsultationTitle:    req.ConsultationTitle,
						ConsultationDetails:  req.ConsultationDetails,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal checkout: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("create checkout: unexpected status %d", resp.StatusCode)
	}

	var parsed checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if parsed.Data.Attributes.URL == "" {
		return "", fmt.Errorf("checkout response missing url")
	}

	c.log.Debug().Str("room", req.RoomID).Msg("checkout link created")
	return parsed.Data.Attributes.URL, nil
}
