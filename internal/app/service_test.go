package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/salesbridge/account-service/internal/domain"
	"github.com/salesbridge/account-service/pkg/salesforce"
)

// fakeRecordCreator is an in-memory stand-in for the Salesforce client. It
// deduplicates creates by idempotency key, mirroring the adapter contract.
type fakeRecordCreator struct {
	mu      sync.Mutex
	outcome domain.CreateOutcome
	err     error
	calls   int
	created int
	byKey   map[string]domain.CreateOutcome
	lastKey string
	lastRec domain.AccountRecord
}

func (f *fakeRecordCreator) CreateAccount(ctx context.Context, record domain.AccountRecord, idempotencyKey string) (domain.CreateOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastKey = idempotencyKey
	f.lastRec = record
	if f.err != nil {
		return domain.CreateOutcome{}, f.err
	}
	if f.byKey == nil {
		f.byKey = make(map[string]domain.CreateOutcome)
	}
	if existing, ok := f.byKey[idempotencyKey]; ok {
		return existing, nil
	}
	f.created++
	f.byKey[idempotencyKey] = f.outcome
	return f.outcome, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	calls  int
	events []domain.AccountEvent
	keys   []string
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, routingKey)
	if event, ok := body.(domain.AccountEvent); ok {
		f.events = append(f.events, event)
	}
	return f.err
}

func validPayload() domain.CreateAccountPayload {
	return domain.CreateAccountPayload{AccountName: "Acme", Phone: "555", City: "NYC", Industry: "Tech"}
}

func TestCreateAccountSuccess(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "Acme", "key-1")

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Body.Message != "Account created and event published successfully" {
		t.Fatalf("unexpected message: %q", resp.Body.Message)
	}
	if resp.Body.AccountID != "001xx" {
		t.Fatalf("expected accountId 001xx, got %q", resp.Body.AccountID)
	}
	if !resp.Body.Success {
		t.Fatal("expected success true")
	}
	if resp.Body.Error != "" || resp.Body.Details != "" {
		t.Fatalf("success body must not carry error fields: %+v", resp.Body)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected exactly one published event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Status != "SUCCESS" {
		t.Fatalf("expected SUCCESS event, got %q", event.Status)
	}
	if event.AccountID != "001xx" {
		t.Fatalf("expected event accountId 001xx, got %q", event.AccountID)
	}
	if publisher.keys[0] != "account.created" {
		t.Fatalf("expected routing key account.created, got %q", publisher.keys[0])
	}
}

func TestCreateAccountValidationFailure(t *testing.T) {
	records := &fakeRecordCreator{}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), domain.CreateAccountPayload{AccountName: ""}, "", "key-1")

	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if resp.Body.Error != "Invalid Salesforce input" {
		t.Fatalf("unexpected error: %q", resp.Body.Error)
	}
	if resp.Body.Details != "accountName required" {
		t.Fatalf("unexpected details: %q", resp.Body.Details)
	}
	if records.calls != 0 {
		t.Fatalf("record client must not be called on validation failure, got %d calls", records.calls)
	}
	if publisher.calls != 0 {
		t.Fatalf("no event must be published on validation failure, got %d publishes", publisher.calls)
	}
}

func TestCreateAccountRecordInvalidInput(t *testing.T) {
	records := &fakeRecordCreator{err: &salesforce.APIError{
		StatusCode:  400,
		ErrorCode:   "REQUIRED_FIELD_MISSING",
		Description: "Required fields are missing: [Name]",
	}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "", "key-1")

	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if resp.Body.Error != "Invalid Salesforce input" {
		t.Fatalf("unexpected error: %q", resp.Body.Error)
	}
	if resp.Body.Details != "Required fields are missing: [Name]" {
		t.Fatalf("unexpected details: %q", resp.Body.Details)
	}

	// A FAILED event is still published for the attempt.
	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Status != "FAILED" {
		t.Fatalf("expected FAILED event, got %q", event.Status)
	}
	if event.AccountID != "N/A" {
		t.Fatalf("expected event accountId N/A, got %q", event.AccountID)
	}
}

func TestCreateAccountRecordUnexpectedError(t *testing.T) {
	records := &fakeRecordCreator{err: errors.New("connection reset by peer")}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "", "key-1")

	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if resp.Body.Error != "Unhandled error: connection reset by peer" {
		t.Fatalf("unexpected error: %q", resp.Body.Error)
	}
	if resp.Body.Details != "" || resp.Body.Message != "" {
		t.Fatalf("500 body must carry only the error field: %+v", resp.Body)
	}

	// Failure attempts are still announced downstream.
	if len(publisher.events) != 1 || publisher.events[0].Status != "FAILED" {
		t.Fatalf("expected one FAILED event, got %+v", publisher.events)
	}
}

func TestCreateAccountUnsuccessfulOutcomeWithoutError(t *testing.T) {
	// A 2xx answer can still carry {"success":false}; the success flag, not
	// the absence of an error, decides the pipeline state.
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: false}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "Acme", "key-1")

	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if resp.Body.Error != "Unhandled error: Salesforce reported an unsuccessful create" {
		t.Fatalf("unexpected error: %q", resp.Body.Error)
	}
	if resp.Body.Success || resp.Body.Message != "" || resp.Body.AccountID != "" {
		t.Fatalf("500 body must carry only the error field: %+v", resp.Body)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Status != "FAILED" {
		t.Fatalf("expected FAILED event, got %q", event.Status)
	}
	if event.AccountID != "N/A" {
		t.Fatalf("expected event accountId N/A, got %q", event.AccountID)
	}
}

func TestCreateAccountUnsuccessfulOutcomeKeepsDescription(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.FailedOutcome("duplicate value found")}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "", "key-1")

	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if resp.Body.Error != "Unhandled error: duplicate value found" {
		t.Fatalf("unexpected error: %q", resp.Body.Error)
	}
}

func TestCreateAccountPublishFailureAfterCreate(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}}
	publisher := &fakePublisher{err: errors.New("channel unavailable")}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "", "key-1")

	// The record exists, but the caller must see the partial failure.
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if resp.Body.Error != "Unhandled error: channel unavailable" {
		t.Fatalf("unexpected error: %q", resp.Body.Error)
	}
	if records.created != 1 {
		t.Fatalf("expected the record to have been created, got %d", records.created)
	}
}

func TestCreateAccountPublishFailureDoesNotMaskCreateFailure(t *testing.T) {
	records := &fakeRecordCreator{err: &salesforce.APIError{StatusCode: 400, Description: "bad input"}}
	publisher := &fakePublisher{err: errors.New("channel unavailable")}
	service := NewService(records, publisher, "account.created")

	resp := service.CreateAccount(context.Background(), validPayload(), "", "key-1")

	// First terminal cause wins: the caller-attributable create failure.
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if publisher.calls != 1 {
		t.Fatalf("expected a publish attempt, got %d", publisher.calls)
	}
}

func TestCreateAccountEventNameDecoupledFromBody(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	// Body names the account, but no query parameter was supplied: the
	// event label is N/A regardless of create success.
	service.CreateAccount(context.Background(), validPayload(), "", "key-1")

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	if publisher.events[0].AccountName != "N/A" {
		t.Fatalf("expected event accountName N/A, got %q", publisher.events[0].AccountName)
	}
}

func TestCreateAccountRespondsOnceUnderEveryFailureInjection(t *testing.T) {
	tests := []struct {
		name       string
		payload    domain.CreateAccountPayload
		recordErr  error
		publishErr error
		wantStatus int
	}{
		{name: "validation failure", payload: domain.CreateAccountPayload{}, wantStatus: 400},
		{name: "record invalid input", payload: validPayload(), recordErr: &salesforce.APIError{StatusCode: 400, Description: "x"}, wantStatus: 400},
		{name: "record unexpected", payload: validPayload(), recordErr: errors.New("boom"), wantStatus: 500},
		{name: "publish failure", payload: validPayload(), publishErr: errors.New("boom"), wantStatus: 500},
		{name: "no failure", payload: validPayload(), wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}, err: tt.recordErr}
			publisher := &fakePublisher{err: tt.publishErr}
			service := NewService(records, publisher, "account.created")

			resp := service.CreateAccount(context.Background(), tt.payload, "Acme", "key-1")
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestCreateAccountRunsToPublishAfterCallerDisconnect(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already gone

	resp := service.CreateAccount(ctx, validPayload(), "", "key-1")

	if resp.StatusCode != 200 {
		t.Fatalf("expected pipeline to complete despite cancelled caller, got %d", resp.StatusCode)
	}
	if publisher.calls != 1 {
		t.Fatalf("expected publish to be attempted, got %d", publisher.calls)
	}
}

func TestConcurrentRequestsWithSameIdempotencyKeyCreateOneRecord(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := service.CreateAccount(context.Background(), validPayload(), "Acme", "fixed-key")
			if resp.StatusCode != 200 {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	if records.created != 1 {
		t.Fatalf("expected at most one created record for a fixed idempotency key, got %d", records.created)
	}
	if records.calls != workers {
		t.Fatalf("expected %d create calls, got %d", workers, records.calls)
	}
}

func TestCreateAccountForwardsRecordFields(t *testing.T) {
	records := &fakeRecordCreator{outcome: domain.CreateOutcome{Success: true, RecordID: "001xx"}}
	publisher := &fakePublisher{}
	service := NewService(records, publisher, "account.created")

	service.CreateAccount(context.Background(), validPayload(), "", "key-42")

	if records.lastKey != "key-42" {
		t.Fatalf("expected idempotency key to be forwarded, got %q", records.lastKey)
	}
	want := domain.AccountRecord{Name: "Acme", Phone: "555", BillingCity: "NYC", Industry: "Tech", Type: "Prospect"}
	if records.lastRec != want {
		t.Fatalf("unexpected record: %+v", records.lastRec)
	}
}

func TestDescribeErrorPrefersAPIDescription(t *testing.T) {
	apiErr := fmt.Errorf("create failed: %w", &salesforce.APIError{StatusCode: 503, Description: "service unavailable"})
	if got := describeError(apiErr); got != "service unavailable" {
		t.Fatalf("expected downstream description, got %q", got)
	}
	if got := describeError(errors.New("dial tcp: timeout")); got != "dial tcp: timeout" {
		t.Fatalf("expected raw error text, got %q", got)
	}
}
