package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/pkg/enums"
)

var ErrUnresolvableRequest = errors.New("request must carry channel and recipient, or personId")

// Request is either a Direct message or a PersonRef resolved from the persons table.
type Request interface {
	isRequest()
}

// Direct is sent as-is. Channel is kept verbatim so an unknown value can be
// reported back to the caller.
type Direct struct {
	Channel   enums.Channel `json:"channel"`
	Recipient string        `json:"recipient"`
	Message   string        `json:"message"`
	Subject   string        `json:"subject,omitempty"`
}

// PersonRef derives channel, recipient and (when Message is blank) a greeting
// from a person record.
type PersonRef struct {
	PersonID uuid.UUID `json:"personId"`
	Message  string    `json:"message,omitempty"`
}

func (Direct) isRequest()    {}
func (PersonRef) isRequest() {}

type wireRequest struct {
	Channel   *string `json:"channel"`
	Recipient *string `json:"recipient"`
	Message   string  `json:"message"`
	Subject   string  `json:"subject"`
	PersonID  *string `json:"personId"`
}

// DecodeRequest picks the variant by field presence: channel plus recipient
// means Direct, otherwise personId means PersonRef.
func DecodeRequest(raw []byte) (Request, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrUnresolvableRequest
	}
	var wire wireRequest
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode notification request: %w", err)
	}

	switch {
	case wire.Channel != nil && wire.Recipient != nil:
		return Direct{
			Channel:   enums.Channel(strings.TrimSpace(*wire.Channel)),
			Recipient: strings.TrimSpace(*wire.Recipient),
			Message:   wire.Message,
			Subject:   wire.Subject,
		}, nil
	case wire.PersonID != nil:
		ref := PersonRef{Message: wire.Message}
		if id := strings.TrimSpace(*wire.PersonID); id != "" {
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("invalid personId %q: %w", id, err)
			}
			ref.PersonID = parsed
		}
		return ref, nil
	default:
		return nil, ErrUnresolvableRequest
	}
}

// EncodeRequest renders a request in the shape DecodeRequest reads back.
func EncodeRequest(req Request) ([]byte, error) {
	switch r := req.(type) {
	case Direct, PersonRef:
		return json.Marshal(r)
	case *Direct:
		return json.Marshal(*r)
	case *PersonRef:
		return json.Marshal(*r)
	default:
		return nil, fmt.Errorf("unsupported request type %T", req)
	}
}
