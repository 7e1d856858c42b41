package usecase

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError marks a malformed inbound event. Nothing was mutated or published.
type ValidationError struct {
	TopicID uuid.UUID
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event for topic %s: %s", e.TopicID, e.Reason)
}

// ProcessingError marks a failure after validation: completion, aggregation or
// publishing. A FAILED status has already been reported for the topic.
type ProcessingError struct {
	TopicID uuid.UUID
	Stage   string
	Err     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed for topic %s: %v", e.Stage, e.TopicID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
