package models

import "encoding/json"

// MessageType tags the kind of an Envelope. Webhook delivery is the only
// kind today.
type MessageType string

const MessageTypeWebhook MessageType = "webhook"

// WebhookMessage is an ephemeral delivery unit: a captured inbound HTTP
// request on its way to the owner's client. It is never persisted.
//
// Method is the verb of the inbound call, which may differ from the verb
// the endpoint was registered with. Body is nil for GET and HEAD.
type WebhookMessage struct {
	EndpointID string            `json:"endpointId"`
	Target     string            `json:"target"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers"`
	Body       *string           `json:"body"`
}

// Envelope is the tagged wire frame sent server to client.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewWebhookEnvelope(msg *WebhookMessage) (*Envelope, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: MessageTypeWebhook, Data: data}, nil
}
