package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/db/models"
	"github.com/angelmondragon/armory-backend/pkg/enums"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/metrics"
)

const whatsAppPrefix = "whatsapp:"

var (
	ErrEmailNotImplemented = errors.New("email delivery not implemented")
	errMissingPersonID     = errors.New("personId is required")
)

// MessageSender is the outbound transport. The twilio client implements it.
type MessageSender interface {
	Send(ctx context.Context, from, to, body string) (string, error)
}

// PersonReader resolves PersonRef requests.
type PersonReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
}

// Result is the outcome of one send. Failures are reported here, never as errors.
type Result struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{OK: false, Error: err.Error()}
}

// Dispatcher resolves requests and delivers them over SMS or WhatsApp.
type Dispatcher struct {
	cfg     config.TwilioConfig
	sender  MessageSender
	persons PersonReader
	metrics *metrics.DeliveryMetrics
	logg    *logger.Logger
}

// NewDispatcher builds a dispatcher. sender may be nil when the transport is
// not configured; every SMS/WhatsApp send then reports missing configuration.
func NewDispatcher(cfg config.TwilioConfig, sender MessageSender, persons PersonReader, m *metrics.DeliveryMetrics, logg *logger.Logger) (*Dispatcher, error) {
	if persons == nil {
		return nil, fmt.Errorf("person reader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{cfg: cfg, sender: sender, persons: persons, metrics: m, logg: logg}, nil
}

// Send resolves req and hands it to the transport.
func (d *Dispatcher) Send(ctx context.Context, req Request) Result {
	direct, err := d.resolve(ctx, req)
	if err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "notification request unresolvable")
		d.metrics.IncSend("unresolved", false)
		return failure(err)
	}

	logCtx := d.logg.WithFields(ctx, map[string]any{
		"channel":   direct.Channel,
		"recipient": maskAddress(direct.Recipient),
	})
	result := d.deliver(ctx, direct)
	d.metrics.IncSend(channelLabel(direct.Channel), result.OK)
	if result.OK {
		d.logg.Info(d.logg.WithField(logCtx, "message_id", result.ID), "notification sent")
	} else {
		d.logg.Warn(d.logg.WithField(logCtx, "error", result.Error), "notification failed")
	}
	return result
}

// SendRaw decodes a wire request and sends it. Undecodable payloads become
// failure results.
func (d *Dispatcher) SendRaw(ctx context.Context, raw []byte) Result {
	req, err := DecodeRequest(raw)
	if err != nil {
		d.metrics.IncSend("unresolved", false)
		return failure(err)
	}
	return d.Send(ctx, req)
}

func (d *Dispatcher) resolve(ctx context.Context, req Request) (Direct, error) {
	switch r := req.(type) {
	case Direct:
		return r, nil
	case *Direct:
		if r == nil {
			return Direct{}, ErrUnresolvableRequest
		}
		return *r, nil
	case PersonRef:
		return d.resolvePerson(ctx, r)
	case *PersonRef:
		if r == nil {
			return Direct{}, ErrUnresolvableRequest
		}
		return d.resolvePerson(ctx, *r)
	default:
		return Direct{}, ErrUnresolvableRequest
	}
}

func (d *Dispatcher) resolvePerson(ctx context.Context, ref PersonRef) (Direct, error) {
	if ref.PersonID == uuid.Nil {
		return Direct{}, errMissingPersonID
	}
	person, err := d.persons.FindByID(ctx, ref.PersonID)
	if err != nil {
		if db.IsNotFound(err) {
			return Direct{}, fmt.Errorf("person %s not found", ref.PersonID)
		}
		return Direct{}, fmt.Errorf("lookup person %s: %w", ref.PersonID, err)
	}

	channel := person.Channel()
	recipient := person.AddressFor(channel)
	if recipient == "" {
		return Direct{}, fmt.Errorf("person %s has no address for %s", ref.PersonID, channel)
	}
	message := ref.Message
	if strings.TrimSpace(message) == "" {
		message = greeting(person.Name)
	}
	return Direct{Channel: channel, Recipient: recipient, Message: message}, nil
}

func (d *Dispatcher) deliver(ctx context.Context, req Direct) Result {
	channel, err := enums.ParseChannel(string(req.Channel))
	if err != nil {
		return failure(fmt.Errorf("unknown channel %s", req.Channel))
	}

	var from, to string
	switch channel {
	case enums.ChannelEmail:
		return failure(ErrEmailNotImplemented)
	case enums.ChannelSMS:
		from, to = strings.TrimSpace(d.cfg.SMSFrom), req.Recipient
	case enums.ChannelWhatsApp:
		from, to = strings.TrimSpace(d.cfg.WhatsAppFrom), req.Recipient
	}

	if d.sender == nil || !d.cfg.HasCredentials() || from == "" {
		return failure(fmt.Errorf("twilio configuration missing for %s", channel))
	}
	if strings.TrimSpace(to) == "" {
		return failure(errors.New("recipient is required"))
	}
	if channel == enums.ChannelWhatsApp {
		from, to = WithWhatsAppPrefix(from), WithWhatsAppPrefix(to)
	}

	sid, err := d.sender.Send(ctx, from, to, req.Message)
	if err != nil {
		return failure(err)
	}
	return Result{OK: true, ID: sid}
}

// channelLabel bounds the metric label set to the known channels.
func channelLabel(channel enums.Channel) string {
	parsed, err := enums.ParseChannel(string(channel))
	if err != nil {
		return "unknown"
	}
	return string(parsed)
}

// WithWhatsAppPrefix adds the whatsapp: scheme unless the address already has it.
func WithWhatsAppPrefix(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(strings.ToLower(address), whatsAppPrefix) {
		return address
	}
	return whatsAppPrefix + address
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s, this is a test notification from the armory inventory system.", name)
}

// maskAddress keeps the last four characters so logs identify a recipient
// without carrying the full number or email.
func maskAddress(address string) string {
	if len(address) <= 4 {
		return address
	}
	return strings.Repeat("*", len(address)-4) + address[len(address)-4:]
}
