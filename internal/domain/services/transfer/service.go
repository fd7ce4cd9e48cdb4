package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
	"github.com/stack-service/circle_transfer/pkg/idempotency"
	"github.com/stack-service/circle_transfer/pkg/logger"
)

// CircleAdapter interface for the Circle business account API
type CircleAdapter interface {
	ListRecipientAddresses(ctx context.Context) ([]entities.Recipient, error)
	CreateTransfer(ctx context.Context, req entities.CircleTransferRequest) (*entities.CircleTransfer, error)
	HealthCheck(ctx context.Context) error
}

// Service resolves recipients and creates transfers in a single environment
type Service struct {
	environment entities.Environment
	circleAPI   CircleAdapter
	newKey      idempotency.Generator
	logger      *logger.Logger
}

// NewService creates a transfer service over an already-built adapter
func NewService(environment entities.Environment, circleAPI CircleAdapter, newKey idempotency.Generator, log *logger.Logger) *Service {
	if newKey == nil {
		newKey = idempotency.GenerateKey
	}
	return &Service{
		environment: environment,
		circleAPI:   circleAPI,
		newKey:      newKey,
		logger:      log.ForEnvironment(environment.String()),
	}
}

// Environment returns the environment the service is bound to
func (s *Service) Environment() entities.Environment {
	return s.environment
}

// FindRecipientByAddress returns the first registered recipient whose address
// equals address ignoring case and whose chain equals chain. It returns nil
// without an error when nothing matches. Every call fetches the full list.
func (s *Service) FindRecipientByAddress(ctx context.Context, address, chain string) (*entities.Recipient, error) {
	s.logger.CtxInfo(ctx, "Fetching recipient addresses from Circle")

	recipients, err := s.circleAPI.ListRecipientAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipient addresses: %w", err)
	}

	for i := range recipients {
		if recipients[i].Matches(address, chain) {
			recipient := recipients[i]
			s.logger.CtxInfo(ctx, "Found recipient for address",
				"address", address,
				"chain", chain,
				"recipient_id", recipient.ID)
			return &recipient, nil
		}
	}

	s.logger.CtxInfo(ctx, "No recipient found for address",
		"address", address,
		"chain", chain,
		"recipients_checked", len(recipients))

	return nil, nil
}

// CreateTransfer sends amount USD to the recipient destinationID. It never
// returns an error: failures are logged and carried in the result so one
// environment's failure cannot abort the run.
func (s *Service) CreateTransfer(ctx context.Context, destinationID, amount string) entities.TransferResult {
	result := entities.TransferResult{
		Environment:   s.environment,
		DestinationID: destinationID,
		Amount:        amount,
	}

	value, err := entities.ParseAmount(amount)
	if err != nil {
		result.Err = apperrors.WrapInput(err, "invalid transfer amount")
		s.logger.CtxError(ctx, "Refusing to create transfer", "amount", amount, "error", result.Err)
		return result
	}
	result.Amount = value.StringFixed(2)

	key, err := s.newKey()
	if err != nil {
		result.Err = apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "IDEMPOTENCY_KEY_FAILED", "could not generate idempotency key")
		s.logger.CtxError(ctx, "Refusing to create transfer", "error", result.Err)
		return result
	}
	result.IdempotencyKey = key

	s.logger.CtxInfo(ctx, "Attempting to create transfer",
		"destination_id", destinationID,
		"amount", result.Amount,
		"currency", entities.ReportingCurrency,
		"idempotency_key", key)

	transfer, err := s.circleAPI.CreateTransfer(ctx, entities.CircleTransferRequest{
		IdempotencyKey: key,
		Destination: entities.TransferDestination{
			Type: entities.DestinationTypeWallet,
			ID:   destinationID,
		},
		Amount: entities.Money{
			Amount:   result.Amount,
			Currency: entities.ReportingCurrency,
		},
	})
	if err != nil {
		result.Err = typedTransferError(err)
		fields := []interface{}{
			"destination_id", destinationID,
			"idempotency_key", key,
			"error_type", apperrors.GetType(result.Err),
			"error", result.Err,
		}
		var circleErr entities.CircleErrorResponse
		if errors.As(err, &circleErr) {
			fields = append(fields, "circle_error", circleErr)
		}
		s.logger.CtxError(ctx, "Error creating transfer", fields...)
		return result
	}

	result.TransferID = transfer.ID
	result.Status = transfer.Status

	s.logger.CtxInfo(ctx, "Transfer created successfully",
		"transfer_id", transfer.ID,
		"status", transfer.Status,
		"destination_id", destinationID)

	return result
}

// HealthCheck pings the environment's Circle API
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.circleAPI.HealthCheck(ctx)
}

func typedTransferError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.WrapTransferCreation(err, 0)
}
