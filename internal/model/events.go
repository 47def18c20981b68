package model

import (
	"encoding/json"
	"fmt"
)

// Event names on the WebSocket wire.
const (
	// Client → server
	EventJoinOffice     = "join:office"
	EventJoinMerchant   = "join:merchant"
	EventJoinCourier    = "join:courier"
	EventLocationUpdate = "location:update"

	// Server → client
	EventConnected        = "connected"
	EventError            = "error"
	EventLocationAll      = "location:all"
	EventLocationReceived = "location:received"
)

// Envelope wraps every message on the WebSocket wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals an event payload into its wire form.
func EncodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// ConnectedPayload is sent once after a successful connection.
type ConnectedPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ErrorPayload is sent for malformed join/update requests. The
// connection stays open.
type ErrorPayload struct {
	Message string `json:"message"`
}

// JoinMerchantRequest asks for the per-package channel of one delivery.
type JoinMerchantRequest struct {
	MerchantID *int64 `json:"merchant_id"`
	PackageID  *int64 `json:"package_id"`
}

// JoinCourierRequest registers the connection as a courier's uplink.
// Registration does not itself trigger any broadcast.
type JoinCourierRequest struct {
	CourierID *int64 `json:"courier_id"`
}
