package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/consultwire/consult-server/internal/core"
)

// EventOrderCreated is the only webhook event that creates a room.
const EventOrderCreated = "order_created"

// RoomCustomData is the consultation payload the provider echoes back in its
// webhook. Field names match the provider's custom data.
type RoomCustomData struct {
	RoomID               string `json:"chatroomId"`
	SpecialistID         string `json:"specialist_id"`
	SpecialistFirstName  string `json:"specialist_first_name"`
	SpecialistLastName   string `json:"specialist_last_name"`
	SpecialistProfilePic string `json:"specialist_profile_pic"`
	SpecialistPushToken  string `json:"specialist_fcm_token"`
	UserID               string `json:"user_id"`
	UserFirstName        string `json:"user_first_name"`
	UserProfilePic       string `json:"user_profile_pic"`
	UserPushToken        string `json:"user_fcm_token"`
	ConsultationTitle    string `json:"consultation_title"`
	ConsultationDetails  string `json:"consultation_details"`
}

// WebhookEnvelope mirrors the provider's webhook body.
type WebhookEnvelope struct {
	Meta struct {
		EventName  string         `json:"event_name"`
		CustomData RoomCustomData `json:"custom_data"`
	} `json:"meta"`
}

// ParseWebhook decodes a webhook body.
func ParseWebhook(body []byte) (*WebhookEnvelope, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &envelope, nil
}

// VerifySignature checks the provider's HMAC-SHA256 hex signature over the
// raw body. An empty secret disables verification (local testing only).
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Validate checks the custom data carries everything a room needs.
func (d *RoomCustomData) Validate() error {
	required := map[string]string{
		"chatroomId":            d.RoomID,
		"user_id":               d.UserID,
		"specialist_id":         d.SpecialistID,
		"user_first_name":       d.UserFirstName,
		"specialist_first_name": d.SpecialistFirstName,
		"consultation_title":    d.ConsultationTitle,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing required custom data field %q", name)
		}
	}
	return nil
}

// ToRoomCreation maps the custom data to the core room-creation payload.
func (d *RoomCustomData) ToRoomCreation() *core.RoomCreation {
	return &core.RoomCreation{
		RoomID:               d.RoomID,
		SpecialistID:         d.SpecialistID,
		SpecialistFirstName:  d.SpecialistFirstName,
		SpecialistProfilePic: d.SpecialistProfilePic,
		SpecialistPushToken:  d.SpecialistPushToken,
		UserID:               d.UserID,
		UserFirstName:        d.UserFirstName,
		UserProfilePic:       d.UserProfilePic,
		UserPushToken:        d.UserPushToken,
		ConsultationTitle:    d.ConsultationTitle,
		ConsultationDetails:  d.ConsultationDetails,
	}
}
