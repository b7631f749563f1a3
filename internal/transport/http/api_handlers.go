package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/consultwire/consult-server/internal/core"
	"github.com/consultwire/consult-server/internal/payments"
	"github.com/consultwire/consult-server/internal/proto"
	"github.com/consultwire/consult-server/internal/store"
)

// SignatureHeader carries the payment provider's webhook signature.
const SignatureHeader = "X-Signature"

// APIHandlers provides HTTP handlers for the REST and webhook endpoints.
type APIHandlers struct {
	hub           *core.Hub
	store         store.Store
	signingSecret string
	log           *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, st store.Store, signingSecret string, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:           hub,
		store:         st,
		signingSecret: signingSecret,
		log:           logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a plain acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// PaymentWebhook consumes the payment provider's order events and creates the
// consultation room the order paid for.
// POST /webhooks/payment
func (h *APIHandlers) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Warn().Err(err).Msg("read webhook body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
		return
	}

	if !payments.VerifySignature(h.signingSecret, body, c.GetHeader(SignatureHeader)) {
		h.log.Warn().Msg("webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
		return
	}

	envelope, err := payments.ParseWebhook(body)
	if err != nil {
		h.log.Warn().Err(err).Msg("decode webhook")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid webhook body"})
		return
	}

	if envelope.Meta.EventName != payments.EventOrderCreated {
		c.JSON(http.StatusOK, StatusResponse{Status: "ignored"})
		return
	}

	data := envelope.Meta.CustomData
	if err := data.Validate(); err != nil {
		h.log.Warn().Err(err).Msg("incomplete webhook custom data")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	creation := data.ToRoomCreation()
	if err := h.hub.CreateRoomFromPayment(c.Request.Context(), creation); err != nil {
		h.log.Error().Err(err).Str("room_id", creation.RoomID).Msg("create room from payment")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create room"})
		return
	}

	// The pending link is spent once the order lands. A failed delete is
	// reported so the provider retries; CreateRoom is idempotent on replay.
	if err := h.store.DeletePaymentLink(c.Request.Context(), creation.RoomID, creation.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error().Err(err).Str("room_id", creation.RoomID).Msg("delete payment link")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete payment link"})
		return
	}

	h.log.Info().Str("room_id", creation.RoomID).Str("user_id", creation.UserID).
		Str("specialist_id", creation.SpecialistID).Msg("room created from payment")
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// CreateRoom creates a consultation room directly, bypassing the payment flow.
// POST /rooms
func (h *APIHandlers) CreateRoom(c *gin.Context) {
	var creation core.RoomCreation
	if err := c.ShouldBindJSON(&creation); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if creation.RoomID == "" || creation.UserID == "" || creation.SpecialistID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "chatroomId, user_id and specialist_id are required"})
		return
	}

	if err := h.hub.CreateRoomFromPayment(c.Request.Context(), &creation); err != nil {
		h.log.Error().Err(err).Str("room_id", creation.RoomID).Msg("create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, StatusResponse{Status: "ok"})
}

// NewMessages returns messages posted to a room after the given time.
// GET /rooms/:room_id/messages/new?since=<RFC3339>
func (h *APIHandlers) NewMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	sinceParam := c.Query("since")
	if sinceParam == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "since query parameter is required"})
		return
	}
	since, err := time.Parse(time.RFC3339, sinceParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "since must be RFC3339"})
		return
	}

	messages, err := h.store.ListMessagesSince(c.Request.Context(), roomID, since)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("list new messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	records := make([]proto.MessageRecord, 0, len(messages))
	for _, msg := range messages {
		records = append(records, proto.MessageRecord{
			MessageID:   msg.ID,
			RoomID:      msg.RoomID,
			SenderID:    msg.SenderID,
			Message:     msg.Body,
			MediaURL:    msg.MediaURL,
			MessageType: msg.MediaType,
			Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
			Status:      string(msg.Status),
		})
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "messages": records})
}

// PaymentLinkItem is one pending checkout in a payment-links response.
type PaymentLinkItem struct {
	RoomID              string `json:"chatroomId"`
	UserID              string `json:"user_id"`
	SpecialistID        string `json:"specialist_id"`
	Link                string `json:"link"`
	ConsultationTitle   string `json:"consultation_title,omitempty"`
	SpecialistFirstName string `json:"specialist_first_name,omitempty"`
	SpecialistLastName  string `json:"specialist_last_name,omitempty"`
}

// ListPaymentLinks returns the pending checkout links of one user.
// GET /payment-links?user_id=<id>
func (h *APIHandlers) ListPaymentLinks(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id query parameter is required"})
		return
	}

	links, err := h.store.ListPaymentLinks(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("list payment links")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	items := make([]PaymentLinkItem, 0, len(links))
	for _, link := range links {
		items = append(items, PaymentLinkItem{
			RoomID:              link.RoomID,
			UserID:              link.UserID,
			SpecialistID:        link.SpecialistID,
			Link:                link.Link,
			ConsultationTitle:   link.ConsultationTitle,
			SpecialistFirstName: link.SpecialistFirstName,
			SpecialistLastName:  link.SpecialistLastName,
		})
	}
	c.JSON(http.StatusOK, gin.H{"links": items})
}

// DeletePaymentLinkRequest addresses one pending checkout.
type DeletePaymentLinkRequest struct {
	RoomID string `json:"chatroomId" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// DeletePaymentLink removes a pending checkout link.
// POST /payment-links/delete
func (h *APIHandlers) DeletePaymentLink(c *gin.Context) {
	var req DeletePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid delete payment link request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.DeletePaymentLink(c.Request.Context(), req.RoomID, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "payment link not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", req.RoomID).Msg("delete payment link")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}
