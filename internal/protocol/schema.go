package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

const emptySchema = `{"type": "object", "additionalProperties": false}`

// Inbound payload schemas, keyed by message type.
var inboundSchemas = map[string]string{
	MsgJoin: `{
		"type": "object",
		"required": ["display_name", "room_code"],
		"properties": {
			"display_name": {"type": "string", "minLength": 1, "maxLength": 32, "pattern": "^[^\\s].*$"},
			"room_code": {"type": "string", "minLength": 1, "maxLength": 16}
		},
		"additionalProperties": false
	}`,
	MsgSell: `{
		"type": "object",
		"required": ["tile_id"],
		"properties": {
			"tile_id": {"type": "integer", "minimum": 1}
		},
		"additionalProperties": false
	}`,
	MsgReady:   emptySchema,
	MsgForfeit: emptySchema,
	MsgBuy:     emptySchema,
	MsgEndTurn: emptySchema,
}

// Validator checks inbound envelopes before they reach the game.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(inboundSchemas))}
	for typ, src := range inboundSchemas {
		s, err := jsonschema.CompileString(typ+".schema.json", src)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", typ, err)
		}
		v.schemas[typ] = s
	}
	return v, nil
}

// MustValidator is like NewValidator but panics on error.
func MustValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks the envelope type and payload. A missing payload counts
// as an empty object.
func (v *Validator) Validate(env Envelope) error {
	s, ok := v.schemas[env.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	payload := bytes.TrimSpace(env.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
