package queue

import "encoding/json"

// MessageVersion is stamped on outgoing messages so the worker can reject
// payloads from a newer producer it does not understand.
const MessageVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	AuditID    string `json:"auditId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
