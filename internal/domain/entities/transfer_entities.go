package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ReportingCurrency is the currency every business transfer is denominated in
const ReportingCurrency = "USD"

// DestinationTypeWallet is the Circle destination type for a business recipient
const DestinationTypeWallet = "wallet"

// Destination is a blockchain address on a chain
type Destination struct {
	Address string `json:"address" validate:"required"`
	Chain   string `json:"chain" validate:"required,supported_chain"`
}

func (d Destination) String() string {
	return fmt.Sprintf("%s on %s", d.Address, d.Chain)
}

// TestParameters is the input record read once per run
type TestParameters struct {
	SandboxDestination    Destination `json:"sandboxDestination" validate:"required"`
	ProductionDestination Destination `json:"productionDestination" validate:"required"`
	Amount                string      `json:"amount" validate:"required,usd_amount"`
	Currency              string      `json:"currency"`
}

// DestinationFor returns the destination configured for an environment
func (p TestParameters) DestinationFor(env Environment) Destination {
	if env == EnvironmentProduction {
		return p.ProductionDestination
	}
	return p.SandboxDestination
}

// ParsedAmount returns the amount as a decimal
func (p TestParameters) ParsedAmount() (decimal.Decimal, error) {
	return ParseAmount(p.Amount)
}

// ParseAmount parses a positive USD amount with at most two decimal places
func ParseAmount(amount string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a decimal number", amount)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q must be positive", amount)
	}
	if !value.Equal(value.Round(2)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than two decimal places", amount)
	}
	return value, nil
}

// TransferStatus represents the status Circle reports for a transfer
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"
	TransferStatusComplete TransferStatus = "complete"
	TransferStatusFailed   TransferStatus = "failed"
)

// Money is a Circle amount/currency pair
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// TransferDestination identifies where a transfer is sent
type TransferDestination struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Address string `json:"address,omitempty"`
	Chain   string `json:"chain,omitempty"`
}

// CircleTransferRequest is the body of a create business transfer call
type CircleTransferRequest struct {
	IdempotencyKey string              `json:"idempotencyKey"`
	Destination    TransferDestination `json:"destination"`
	Amount         Money               `json:"amount"`
}

// CircleTransfer is a business transfer as returned by Circle
type CircleTransfer struct {
	ID              string               `json:"id"`
	Source          *TransferDestination `json:"source,omitempty"`
	Destination     TransferDestination  `json:"destination"`
	Amount          Money                `json:"amount"`
	TransactionHash string               `json:"transactionHash,omitempty"`
	Status          TransferStatus       `json:"status"`
	ErrorCode       string               `json:"errorCode,omitempty"`
	CreateDate      string               `json:"createDate,omitempty"`
}

// TransferResult is the outcome of a single create transfer attempt.
// Err is nil on success and an *errors.AppError otherwise.
type TransferResult struct {
	Environment    Environment
	DestinationID  string
	Amount         string
	IdempotencyKey string
	TransferID     string
	Status         TransferStatus
	Err            error
}

// Succeeded reports whether Circle accepted the transfer
func (r TransferResult) Succeeded() bool {
	return r.Err == nil && r.TransferID != ""
}
