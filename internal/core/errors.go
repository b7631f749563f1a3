package core

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeStoreError      = "store_error"
	ErrCodeExpiredIdentity = "expired_identity"
	// ErrCodeInvalidCredentials covers every credential rejection that is not
	// an expiry; re-authenticating with the same account will not help.
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeMissingToken    = "missing_token"
	ErrCodeTransportError  = "transport_error"
	ErrCodePartialDelivery = "delivery_partial_failure"
	ErrCodeBadRequest      = "bad_request"
	ErrCodePaymentError    = "payment_error"
)

// CoreError wraps a code, the operation that failed, and a human-readable
// message. Op lets clients see which step of a flow broke instead of a
// generic failure.
type CoreError struct {
	Code    string
	Op      string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, op, msg string) *CoreError {
	return &CoreError{Code: code, Op: op, Message: msg}
}
