/**
 * @description
 * This file defines the core domain model for an inbound account-creation
 * request and its canonical Salesforce representation.
 *
 * @notes
 * - AccountRequest is the validated, immutable form of the caller's payload.
 * - AccountRecord is decoupled from the inbound shape so the Salesforce field
 *   names (Name, BillingCity, ...) never leak into the public API contract.
 */
package domain

// AccountType is the Salesforce account type assigned to every account
// created through this flow.
const AccountType = "Prospect"

// CreateAccountPayload is the raw JSON body of an inbound create request,
// before validation.
type CreateAccountPayload struct {
	AccountName string `json:"accountName"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	Industry    string `json:"industry"`
}

// AccountRequest is a validated account-creation request. Construct it with
// ParseAccountRequest; do not mutate after validation.
type AccountRequest struct {
	AccountName string
	Phone       string
	City        string
	Industry    string
}

// AccountRecord is the canonical form sent to Salesforce.
type AccountRecord struct {
	Name        string `json:"Name"`
	Phone       string `json:"Phone,omitempty"`
	BillingCity string `json:"BillingCity,omitempty"`
	Industry    string `json:"Industry,omitempty"`
	Type        string `json:"Type"`
}

// ValidationKind classifies why an inbound payload was rejected.
type ValidationKind string

const (
	// MissingField marks a required field that was absent or empty.
	MissingField ValidationKind = "missing_field"
	// MalformedField marks a payload that could not be read at all.
	MalformedField ValidationKind = "malformed_field"
)

// ValidationError describes why an inbound payload was rejected. It maps to
// a 400 response; the Details string is safe to return to the caller.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Details string
}

func (e *ValidationError) Error() string {
	return e.Details
}

// MalformedPayloadError classifies an unreadable request body. The transport
// layer uses it so every 400 flows through the same taxonomy.
func MalformedPayloadError(details string) *ValidationError {
	return &ValidationError{Kind: MalformedField, Details: details}
}

// ParseAccountRequest validates a raw payload and returns the immutable
// request form. The only hard requirement is a non-empty accountName; all
// other fields default to empty without failing.
func ParseAccountRequest(payload CreateAccountPayload) (AccountRequest, error) {
	if payload.AccountName == "" {
		return AccountRequest{}, &ValidationError{Kind: MissingField, Field: "accountName", Details: "accountName required"}
	}
	return AccountRequest{
		AccountName: payload.AccountName,
		Phone:       payload.Phone,
		City:        payload.City,
		Industry:    payload.Industry,
	}, nil
}

// Record derives the Salesforce record for this request. The mapping is
// deterministic and Type is always "Prospect" for this flow.
func (r AccountRequest) Record() AccountRecord {
	return AccountRecord{
		Name:        r.AccountName,
		Phone:       r.Phone,
		BillingCity: r.City,
		Industry:    r.Industry,
		Type:        AccountType,
	}
}
