// Package event decodes the notifications that trigger video processing.
//
// Two shapes are accepted: a Pub/Sub push envelope whose message data is
// base64-encoded JSON, and a plain queue body carrying either the name
// directly or the same base64 data field.
package event

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidMessage is returned for notifications that cannot be decoded
// into a video name. Redelivering such a message never helps.
var ErrInvalidMessage = errors.New("invalid message")

var validate = validator.New()

// Message is the message part of a push envelope.
type Message struct {
	Data        string            `json:"data" validate:"required,base64"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// PushEnvelope is the body of a Pub/Sub push request.
type PushEnvelope struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription,omitempty"`
}

// Payload is the decoded notification.
type Payload struct {
	// Name is the raw object key, e.g. "uid-1700000000.mp4".
	Name string `json:"name" validate:"required"`
}

// queueBody accepts both {"name":...} and {"data":"<base64>"}.
type queueBody struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// ParsePush decodes a push envelope read from r.
func ParsePush(r io.Reader) (Payload, error) {
	var env PushEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Payload{}, fmt.Errorf("%w: decode envelope: %w", ErrInvalidMessage, err)
	}
	if err := validate.Struct(env); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return DecodeData(env.Message.Data)
}

// ParseQueueBody decodes a queue message body.
func ParseQueueBody(body string) (Payload, error) {
	var qb queueBody
	if err := json.Unmarshal([]byte(body), &qb); err != nil {
		return Payload{}, fmt.Errorf("%w: decode body: %w", ErrInvalidMessage, err)
	}
	switch {
	case strings.TrimSpace(qb.Name) != "":
		return Payload{Name: strings.TrimSpace(qb.Name)}, nil
	case qb.Data != "":
		return DecodeData(qb.Data)
	default:
		return Payload{}, fmt.Errorf("%w: body has neither name nor data", ErrInvalidMessage)
	}
}

// DecodeData decodes base64-encoded payload JSON.
func DecodeData(data string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: decode data: %w", ErrInvalidMessage, err)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: decode payload: %w", ErrInvalidMessage, err)
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := validate.Struct(p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return p, nil
}

// EncodeData returns the base64 data field for a payload naming name.
func EncodeData(name string) string {
	raw, _ := json.Marshal(Payload{Name: name})
	return base64.StdEncoding.EncodeToString(raw)
}
