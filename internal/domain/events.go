/**
 * @description
 * This file defines the integration event published to RabbitMQ after every
 * account-creation attempt, and the outcome type it is derived from.
 *
 * @notes
 * - An event is built for failed attempts too; the event channel records
 *   attempts, not only successes, so downstream subscribers observe both.
 * - Having a clear, versioned contract for events is crucial for keeping
 *   subscribers stable as the service evolves.
 */
package domain

import "time"

const (
	// EventTypeAccountCreated labels every event emitted by this flow.
	EventTypeAccountCreated = "ACCOUNT_CREATED"

	// EventSource identifies this service as the event origin.
	EventSource = "salesforce-account-service"

	// EventStatusSuccess and EventStatusFailed are the only valid event statuses.
	EventStatusSuccess = "SUCCESS"
	EventStatusFailed  = "FAILED"

	// eventFieldUnavailable is the placeholder for event fields whose value
	// was not supplied or not produced.
	eventFieldUnavailable = "N/A"
)

// CreateOutcome is the structured result of a Salesforce create attempt.
// RecordID is non-empty if and only if Success is true.
type CreateOutcome struct {
	Success          bool
	RecordID         string
	ErrorDescription string
}

// FailedOutcome wraps an error description as a failed CreateOutcome.
func FailedOutcome(description string) CreateOutcome {
	return CreateOutcome{Success: false, ErrorDescription: description}
}

// AccountEvent is the JSON document published to the event exchange.
type AccountEvent struct {
	EventType   string `json:"eventType"`
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
	Source      string `json:"source"`
}

// BuildAccountEvent derives the outbound event from a create outcome. It is
// a total function: it never fails, whatever the outcome looked like.
//
// queryAccountName is the display name taken from the caller's query
// parameter, not from the request body. The two are intentionally decoupled:
// an event can carry accountName "N/A" even for a successful create when the
// caller supplied no query parameter.
func BuildAccountEvent(outcome CreateOutcome, queryAccountName string) AccountEvent {
	accountID := eventFieldUnavailable
	status := EventStatusFailed
	if outcome.Success {
		accountID = outcome.RecordID
		status = EventStatusSuccess
	}

	accountName := queryAccountName
	if accountName == "" {
		accountName = eventFieldUnavailable
	}

	return AccountEvent{
		EventType:   EventTypeAccountCreated,
		AccountID:   accountID,
		AccountName: accountName,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Status:      status,
		Source:      EventSource,
	}
}
