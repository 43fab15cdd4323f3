package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	twiliosdk "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/angelmondragon/armory-backend/pkg/config"
)

var errMissingCredentials = errors.New("twilio account sid and auth token are required")

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Client sends SMS and WhatsApp messages through the Twilio Messages API.
type Client struct {
	api messageCreator
}

// NewClient builds a Twilio client. httpClient may be nil to use the SDK default.
func NewClient(cfg config.TwilioConfig, httpClient *http.Client) (*Client, error) {
	if !cfg.HasCredentials() {
		return nil, errMissingCredentials
	}
	base := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(cfg.AccountSID)

	rest := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username:   cfg.AccountSID,
		Password:   cfg.AuthToken,
		AccountSid: cfg.AccountSID,
		Client:     base,
	})
	return &Client{api: rest.Api}, nil
}

// Send submits one message and returns the provider message SID.
func (c *Client) Send(ctx context.Context, from, to, body string) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("twilio client not initialized")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := c.api.CreateMessage(params)
	if err != nil {
		return "", describeError(err)
	}
	if msg == nil || msg.Sid == nil || strings.TrimSpace(*msg.Sid) == "" {
		return "", errors.New("twilio response missing message sid")
	}
	return *msg.Sid, nil
}

// describeError keeps the provider's code and message, which is what an
// operator needs from a failed send.
func describeError(err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		if restErr.Code != 0 {
			return fmt.Errorf("twilio error %d (status %d): %s", restErr.Code, restErr.Status, restErr.Message)
		}
		return fmt.Errorf("twilio error (status %d): %s", restErr.Status, restErr.Message)
	}
	return fmt.Errorf("twilio request failed: %w", err)
}
