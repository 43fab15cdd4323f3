package enums

import (
	"fmt"
	"strings"
)

// Channel is a notification delivery channel. Persons store their preferred one.
type Channel string

const (
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelEmail    Channel = "EMAIL"
)

// DefaultChannel applies when a person has no preferred channel.
const DefaultChannel = ChannelSMS

var validChannels = []Channel{
	ChannelSMS,
	ChannelWhatsApp,
	ChannelEmail,
}

// IsValid checks whether the channel is one of the known values.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into a Channel, case-insensitively.
func ParseChannel(value string) (Channel, error) {
	normalized := Channel(strings.ToUpper(strings.TrimSpace(value)))
	for _, candidate := range validChannels {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
