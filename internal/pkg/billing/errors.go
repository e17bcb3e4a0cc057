package billing

import "errors"

var (
	// ErrMissingEventID is returned when a webhook delivery carries no usable
	// provider event ID and therefore cannot be deduplicated.
	ErrMissingEventID = errors.New("webhook event id is missing")

	// ErrUnmatchedPayment is returned when no matcher could resolve a payment
	// event to a local order.
	ErrUnmatchedPayment = errors.New("payment event matched no order")

	// ErrIllegalTransition is returned when an event asks for a state change
	// the state machine does not allow from the current state.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrStaleEvent is returned when an out-of-order subscription event is
	// older than the state already applied and is discarded.
	ErrStaleEvent = errors.New("event is older than current subscription state")

	// ErrManualConfirmDisabled is returned when the manual confirmation path
	// is used while the feature flag is off.
	ErrManualConfirmDisabled = errors.New("manual order confirmation is disabled")

	// ErrConfirmSecretInvalid is returned when the manual confirmation secret
	// does not match.
	ErrConfirmSecretInvalid = errors.New("order confirm secret is invalid")
)
