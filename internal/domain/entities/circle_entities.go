package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CircleRecipientListResponse is the envelope of the list recipient addresses call
type CircleRecipientListResponse struct {
	Data []Recipient `json:"data"`
}

// UnmarshalJSON rejects a body without a data array
func (r *CircleRecipientListResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data *[]Recipient `json:"data"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Data == nil {
		return fmt.Errorf("response has no data array")
	}

	r.Data = *aux.Data
	return nil
}

// Validate checks every recipient carries the fields a lookup depends on
func (r CircleRecipientListResponse) Validate() error {
	for i, recipient := range r.Data {
		if recipient.ID == "" {
			return fmt.Errorf("recipient %d has no id", i)
		}
		if recipient.Address == "" {
			return fmt.Errorf("recipient %s has no address", recipient.ID)
		}
	}
	return nil
}

// CircleTransferResponse is the envelope of the create transfer call
type CircleTransferResponse struct {
	Data CircleTransfer `json:"data"`
}

// UnmarshalJSON rejects a body without a data object
func (r *CircleTransferResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data *CircleTransfer `json:"data"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Data == nil {
		return fmt.Errorf("response has no data object")
	}

	r.Data = *aux.Data
	return nil
}

// Validate checks the created transfer has an id
func (r CircleTransferResponse) Validate() error {
	if r.Data.ID == "" {
		return fmt.Errorf("transfer has no id")
	}
	return nil
}

// CircleErrorResponse represents Circle API error response
type CircleErrorResponse struct {
	Code       int                `json:"code"`
	Message    string             `json:"message"`
	Errors     []CircleFieldError `json:"errors,omitempty"`
	StatusCode int                `json:"-"`
}

// CircleFieldError represents field-specific error
type CircleFieldError struct {
	Error        string `json:"error,omitempty"`
	Location     string `json:"location"`
	Message      string `json:"message"`
	InvalidValue any    `json:"invalidValue,omitempty"`
}

// Error implements error interface
func (e CircleErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		var details []string
		for _, fieldErr := range e.Errors {
			details = append(details, fmt.Sprintf("%s: %s", fieldErr.Location, fieldErr.Message))
		}
		return fmt.Sprintf("Circle API error %d (HTTP %d): %s (%s)", e.Code, e.StatusCode, e.Message, strings.Join(details, ", "))
	}
	return fmt.Sprintf("Circle API error %d (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}
