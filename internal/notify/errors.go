package notify

import "errors"

var (
	errPublisherRequired = errors.New("notification publisher required")
	errSenderRequired    = errors.New("notification sender required")
)
