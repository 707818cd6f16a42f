/**
 * @description
 * This file contains the core business logic for the account intake service:
 * the pipeline that validates an inbound request, creates the account in
 * Salesforce, builds the outcome event and publishes it to RabbitMQ, mapping
 * every outcome to exactly one HTTP-style response.
 *
 * @notes
 * - This service layer keeps the API handlers thin and focused on HTTP
 *   concerns, while the pipeline logic remains independently testable.
 * - The response is determined solely by where the pipeline terminated,
 *   never re-derived from accumulated state.
 */
package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/salesbridge/account-service/internal/domain"
	"github.com/salesbridge/account-service/pkg/salesforce"
)

// defaultPipelineTimeout bounds the two boundary calls of one pipeline run.
const defaultPipelineTimeout = 30 * time.Second

// RecordCreator is the boundary interface to the system of record. It makes
// exactly one remote call per invocation.
type RecordCreator interface {
	CreateAccount(ctx context.Context, record domain.AccountRecord, idempotencyKey string) (domain.CreateOutcome, error)
}

// EventPublisher is the boundary interface to the event channel.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// Service orchestrates the account-creation pipeline.
type Service struct {
	records    RecordCreator
	publisher  EventPublisher
	routingKey string
	timeout    time.Duration
}

// NewService creates a new pipeline service. routingKey names the event
// destination on the exchange the publisher is bound to.
func NewService(records RecordCreator, publisher EventPublisher, routingKey string) *Service {
	return &Service{
		records:    records,
		publisher:  publisher,
		routingKey: routingKey,
		timeout:    defaultPipelineTimeout,
	}
}

// ResponseBody is the JSON body of a pipeline response. Exactly one of the
// three closed shapes is ever populated: success (message/accountId/success),
// caller fault (error/details) or infrastructure fault (error).
type ResponseBody struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	Success   bool   `json:"success,omitempty"`
	Details   string `json:"details,omitempty"`
}

// PipelineResponse is the terminal artifact of one pipeline run.
type PipelineResponse struct {
	StatusCode int
	Body       ResponseBody
}

const (
	invalidInputError = "Invalid Salesforce input"
	successMessage    = "Account created and event published successfully"
)

// InvalidInputResponse is the single constructor for the caller-fault 400
// shape; the transport layer reuses it for unreadable payloads.
func InvalidInputResponse(details string) PipelineResponse {
	return PipelineResponse{
		StatusCode: http.StatusBadRequest,
		Body:       ResponseBody{Error: invalidInputError, Details: details},
	}
}

func unhandledErrorResponse(description string) PipelineResponse {
	return PipelineResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       ResponseBody{Error: "Unhandled error: " + description},
	}
}

// CreateAccount runs the full pipeline for one inbound request and returns
// the response to send to the caller. It always returns exactly once; any
// stage failure short-circuits the remaining stages.
//
// queryAccountName is the optional display name from the caller's query
// parameter, used only for event labeling. idempotencyKey is forwarded to
// the record client so a retried request cannot create a duplicate account.
func (s *Service) CreateAccount(ctx context.Context, payload domain.CreateAccountPayload, queryAccountName, idempotencyKey string) PipelineResponse {
	request, err := domain.ParseAccountRequest(payload)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return InvalidInputResponse(ve.Details)
		}
		return InvalidInputResponse(err.Error())
	}

	// Once validation has passed, the pipeline runs to completion even if
	// the caller disconnects, so the event-channel record of the attempt is
	// not lost. The detached context still carries a bounded deadline.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	outcome, createErr := s.records.CreateAccount(opCtx, request.Record(), idempotencyKey)
	switch {
	case createErr != nil:
		outcome = domain.FailedOutcome(describeError(createErr))
	case !outcome.Success:
		// The remote answered 2xx but flagged the create unsuccessful. The
		// outcome's success flag, not the absence of an error, decides the
		// pipeline state.
		description := outcome.ErrorDescription
		if description == "" {
			description = "Salesforce reported an unsuccessful create"
		}
		outcome = domain.FailedOutcome(description)
	}

	// An event is built and a publish attempted for every create outcome,
	// including failures: the event channel records attempts, not only
	// successes.
	event := domain.BuildAccountEvent(outcome, queryAccountName)
	publishErr := s.publisher.Publish(opCtx, s.routingKey, event)

	if !outcome.Success {
		if publishErr != nil {
			log.Printf("level=error component=pipeline msg=\"failed to publish failure event\" err=%v", publishErr)
		}
		var apiErr *salesforce.APIError
		if errors.As(createErr, &apiErr) && apiErr.InvalidInput() {
			return InvalidInputResponse(apiErr.Description)
		}
		return unhandledErrorResponse(outcome.ErrorDescription)
	}

	if publishErr != nil {
		// The record exists but subscribers were not notified; surface the
		// partial failure to the caller.
		log.Printf("level=error component=pipeline msg=\"failed to publish account event\" account_id=%s err=%v", outcome.RecordID, publishErr)
		return unhandledErrorResponse(publishErr.Error())
	}

	return PipelineResponse{
		StatusCode: http.StatusOK,
		Body: ResponseBody{
			Message:   successMessage,
			AccountID: outcome.RecordID,
			Success:   true,
		},
	}
}

// describeError prefers the downstream-reported description over the raw
// error text, so response bodies never carry wrapped transport detail beyond
// what the record system itself said.
func describeError(err error) string {
	var apiErr *salesforce.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Description
	}
	return err.Error()
}
