package eventstore

import (
	"git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
)

// Sentinel errors for history operations. Returned errors match them with
// errors.Is and carry the underlying cause.
var (
	ErrDatabaseOpenFailed     = errors.EventStoreError("could not open run history database").Build()
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize run history schema").Build()
	ErrEventAppendFailed      = errors.EventStoreError("failed to append event to store").Build()
	ErrEventQueryFailed       = errors.EventStoreError("failed to query events from store").Build()
	ErrMarshalPayloadFailed   = errors.EventStoreError("failed to marshal event payload").Build()
	ErrUnmarshalPayloadFailed = errors.EventStoreError("failed to unmarshal event payload").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).Build()
}
