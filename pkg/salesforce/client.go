/**
 * @description
 * This package provides a client for the Salesforce REST API. It encapsulates
 * the logic for making authenticated HTTP requests, handling request/response
 * bodies, and translating API failures into a typed error the caller can
 * branch on.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - github.com/salesbridge/account-service/internal/domain: For the account record type.
 *
 * @notes
 * - The client performs exactly one remote call per invocation; retry policy
 *   belongs to the caller.
 * - It includes a default HTTP client with a timeout to prevent requests from
 *   hanging indefinitely.
 * - Invalid-input rejections (HTTP 400) are distinguished from every other
 *   failure via APIError.InvalidInput, because the two map to different
 *   response codes upstream.
 */
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/salesbridge/account-service/internal/domain"
)

const accountsPath = "/services/data/v59.0/sobjects/Account"

// Client is a client for the Salesforce REST API.
type Client struct {
	InstanceURL string
	AccessToken string
	httpClient  *http.Client
}

// NewClient creates a new Salesforce API client. The access token is assumed
// to be managed externally; the client only attaches it to requests.
func NewClient(instanceURL, accessToken string) *Client {
	return &Client{
		InstanceURL: strings.TrimRight(instanceURL, "/"),
		AccessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError is a structured error returned by Salesforce. StatusCode is the
// HTTP status of the failed call; ErrorCode is the Salesforce error code of
// the first reported error, when one was parseable.
type APIError struct {
	StatusCode  int
	ErrorCode   string
	Description string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("salesforce API request failed with status %d (%s): %s", e.StatusCode, e.ErrorCode, e.Description)
	}
	return fmt.Sprintf("salesforce API request failed with status %d: %s", e.StatusCode, e.Description)
}

// InvalidInput reports whether the failure is attributable to the caller's
// input rather than to infrastructure.
func (e *APIError) InvalidInput() bool {
	return e.StatusCode == http.StatusBadRequest
}

// createResponse is the body Salesforce returns on a successful sobject create.
type createResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// apiErrorBody is a single entry of the error array Salesforce returns on
// failed calls.
type apiErrorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// CreateAccount creates an Account record in Salesforce and returns the
// structured outcome. idempotencyKey is forwarded so that a transport-level
// retry of the same logical request cannot create a duplicate account.
//
// Failures reported by Salesforce come back as *APIError; transport failures
// (including timeouts) come back as wrapped plain errors.
func (c *Client) CreateAccount(ctx context.Context, record domain.AccountRecord, idempotencyKey string) (domain.CreateOutcome, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return domain.CreateOutcome{}, fmt.Errorf("failed to marshal account record: %w", err)
	}

	url := c.InstanceURL + accountsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return domain.CreateOutcome{}, fmt.Errorf("failed to create http request: %w", err)
	}

	c.setHeaders(httpReq, idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.CreateOutcome{}, fmt.Errorf("failed to send request to Salesforce: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.CreateOutcome{}, c.handleErrorResponse(resp)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.CreateOutcome{}, fmt.Errorf("failed to decode successful response: %w", err)
	}

	return domain.CreateOutcome{Success: created.Success, RecordID: created.ID}, nil
}

// setHeaders adds the authentication, idempotency and content-type headers.
func (c *Client) setHeaders(req *http.Request, idempotencyKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
}

// handleErrorResponse reads the body of a failed API call and returns a
// typed *APIError. Salesforce reports errors as a JSON array; when the body
// is not parseable the raw text is carried as the description instead.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Description: "failed to read error response body",
		}
	}

	var apiErrors []apiErrorBody
	if err := json.Unmarshal(bodyBytes, &apiErrors); err == nil && len(apiErrors) > 0 {
		return &APIError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   apiErrors[0].ErrorCode,
			Description: apiErrors[0].Message,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Description: strings.TrimSpace(string(bodyBytes)),
	}
}
