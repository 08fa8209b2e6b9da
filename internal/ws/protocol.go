package ws

import "encoding/json"

type MessageType string

const (
	// inbound
	MsgBeginMonitoring MessageType = "begin_monitoring"

	// outbound
	MsgConnectionAck    MessageType = "connection_ack"
	MsgFeedback         MessageType = "feedback"
	MsgConnectionClosed MessageType = "connection_closed"
	MsgError            MessageType = "error"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// inboundMessage defers payload decoding until the type is known.
type inboundMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type BeginMonitoringPayload struct {
	SessionID string `json:"sessionId"`
}

type AckPayload struct {
	Message string `json:"message"`
}

type ClosedPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
