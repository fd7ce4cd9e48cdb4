package harness

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
	"github.com/stack-service/circle_transfer/pkg/logger"
	"github.com/stack-service/circle_transfer/pkg/metrics"
	"github.com/stack-service/circle_transfer/pkg/tracing"
)

// Stage is the step an environment run reached
type Stage string

const (
	StageResolvingRecipient Stage = "resolving_recipient"
	StageCreatingTransfer   Stage = "creating_transfer"
	StageDone               Stage = "done"
)

// TransferService is the per-environment transfer client the runner drives
type TransferService interface {
	Environment() entities.Environment
	FindRecipientByAddress(ctx context.Context, address, chain string) (*entities.Recipient, error)
	CreateTransfer(ctx context.Context, destinationID, amount string) entities.TransferResult
	HealthCheck(ctx context.Context) error
}

// ServiceFactory builds the transfer service for one environment
type ServiceFactory func(env entities.Environment) (TransferService, error)

// RunReport is the outcome of one environment run
type RunReport struct {
	Environment entities.Environment
	Destination entities.Destination
	Stage       Stage
	RecipientID string
	Result      entities.TransferResult
	Err         error
	Duration    time.Duration
	TraceID     string
}

// Succeeded reports whether the environment produced a transfer
func (r RunReport) Succeeded() bool {
	return r.Err == nil && r.Result.Succeeded()
}

// Outcome returns the metrics outcome label for the report
func (r RunReport) Outcome() string {
	switch {
	case r.Succeeded():
		return metrics.OutcomeCreated
	case apperrors.IsType(r.Err, apperrors.ErrorTypeRecipientNotFound):
		return metrics.OutcomeRecipientNotFound
	case r.Stage == StageResolvingRecipient:
		return metrics.OutcomeLookupFailed
	default:
		return metrics.OutcomeFailed
	}
}

// PingReport is the outcome of one environment health check
type PingReport struct {
	Environment entities.Environment
	Err         error
	Duration    time.Duration
}

// Runner drives recipient lookup and transfer creation, sandbox first
// then production. Environments share no state.
type Runner struct {
	newService ServiceFactory
	logger     *logger.Logger
}

// NewRunner creates a runner
func NewRunner(newService ServiceFactory, log *logger.Logger) *Runner {
	return &Runner{
		newService: newService,
		logger:     log,
	}
}

// Run performs one lookup and at most one transfer per environment. A failure
// in one environment never stops the next. The returned error is non-nil only
// for fatal errors, including cancellation of ctx, in which case the remaining
// environments are skipped.
func (r *Runner) Run(ctx context.Context, params entities.TestParameters) ([]RunReport, error) {
	reports := make([]RunReport, 0, len(entities.Environments()))

	for _, env := range entities.Environments() {
		if err := ctx.Err(); err != nil {
			return reports, r.canceled(err, env)
		}

		service, err := r.newService(env)
		if err != nil {
			if apperrors.IsFatal(err) {
				return reports, fmt.Errorf("build %s transfer service: %w", env, err)
			}
			reports = append(reports, RunReport{
				Environment: env,
				Destination: params.DestinationFor(env),
				Stage:       StageResolvingRecipient,
				Err:         err,
			})
			r.logger.Errorw("Could not build transfer service", "environment", env, "error", err)
			continue
		}

		report := r.runEnvironment(ctx, service, params.DestinationFor(env), params.Amount)
		reports = append(reports, report)

		metrics.RunsTotal.WithLabelValues(env.String(), report.Outcome()).Inc()
		metrics.RunDuration.WithLabelValues(env.String()).Observe(report.Duration.Seconds())

		if err := ctx.Err(); err != nil {
			return reports, r.canceled(err, env)
		}
	}

	return reports, nil
}

func (r *Runner) canceled(err error, env entities.Environment) error {
	r.logger.Warnw("Run interrupted", "environment", env, "error", err)
	return apperrors.WrapCanceled(err, env.String())
}

func (r *Runner) runEnvironment(ctx context.Context, service TransferService, dest entities.Destination, amount string) RunReport {
	env := service.Environment()
	log := r.logger.ForEnvironment(env.String())
	start := time.Now()

	ctx, span := tracing.Tracer().Start(ctx, "harness."+env.String(),
		trace.WithAttributes(
			attribute.String("circle.environment", env.String()),
			attribute.String("circle.destination.address", dest.Address),
			attribute.String("circle.destination.chain", dest.Chain),
		))
	defer span.End()

	report := RunReport{
		Environment: env,
		Destination: dest,
		Stage:       StageResolvingRecipient,
		TraceID:     tracing.TraceID(ctx),
	}

	log.CtxInfo(ctx, fmt.Sprintf("--- Testing %s environment ---", env))

	recipient, err := service.FindRecipientByAddress(ctx, dest.Address, dest.Chain)
	if err != nil {
		report.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "recipient lookup failed")
		log.CtxError(ctx, "Recipient lookup failed", "address", dest.Address, "chain", dest.Chain, "error", err)
		return finish(report, start)
	}
	if recipient == nil {
		report.Err = apperrors.RecipientNotFound(env.String(), dest.Address, dest.Chain)
		span.SetStatus(codes.Error, "recipient not found")
		log.CtxError(ctx, fmt.Sprintf("Could not find recipient in %s environment", env),
			"address", dest.Address, "chain", dest.Chain)
		return finish(report, start)
	}

	report.RecipientID = recipient.ID
	report.Stage = StageCreatingTransfer
	span.SetAttributes(attribute.String("circle.recipient_id", recipient.ID))

	report.Result = service.CreateTransfer(ctx, recipient.ID, amount)
	if !report.Result.Succeeded() {
		report.Err = report.Result.Err
		if report.Err == nil {
			report.Err = apperrors.New(apperrors.ErrorTypeAPIResponse, apperrors.ErrAPIResponse.Code, "transfer created without an id")
		}
		span.RecordError(report.Err)
		span.SetStatus(codes.Error, "transfer creation failed")
		log.CtxError(ctx, fmt.Sprintf("Failed to create transfer in %s environment", env),
			"recipient_id", recipient.ID, "error_type", apperrors.GetType(report.Err), "error", report.Err)
		return finish(report, start)
	}

	report.Stage = StageDone
	span.SetAttributes(attribute.String("circle.transfer_id", report.Result.TransferID))
	log.CtxInfo(ctx, fmt.Sprintf("Transfer created in %s environment", env),
		"transfer_id", report.Result.TransferID,
		"status", report.Result.Status,
		"idempotency_key", report.Result.IdempotencyKey)

	return finish(report, start)
}

func finish(report RunReport, start time.Time) RunReport {
	report.Duration = time.Since(start)
	return report
}

// Ping health-checks every environment without creating transfers
func (r *Runner) Ping(ctx context.Context) ([]PingReport, error) {
	reports := make([]PingReport, 0, len(entities.Environments()))

	for _, env := range entities.Environments() {
		if err := ctx.Err(); err != nil {
			return reports, r.canceled(err, env)
		}

		service, err := r.newService(env)
		if err != nil {
			if apperrors.IsFatal(err) {
				return reports, fmt.Errorf("build %s transfer service: %w", env, err)
			}
			reports = append(reports, PingReport{Environment: env, Err: err})
			continue
		}

		start := time.Now()
		err = service.HealthCheck(ctx)
		report := PingReport{Environment: env, Err: err, Duration: time.Since(start)}
		reports = append(reports, report)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return reports, r.canceled(ctxErr, env)
		}

		if err != nil {
			r.logger.Errorw("Circle API unreachable", "environment", env, "error", err)
		} else {
			r.logger.Infow("Circle API reachable", "environment", env, "duration", report.Duration)
		}
	}

	return reports, nil
}

// LogSummary logs one line per environment report
func (r *Runner) LogSummary(reports []RunReport) {
	for _, report := range reports {
		fields := []interface{}{
			"environment", report.Environment,
			"outcome", report.Outcome(),
			"stage", report.Stage,
			"duration", report.Duration,
		}
		if report.RecipientID != "" {
			fields = append(fields, "recipient_id", report.RecipientID)
		}
		if report.TraceID != "" {
			fields = append(fields, "trace_id", report.TraceID)
		}
		if report.Succeeded() {
			r.logger.Infow("Environment run succeeded", append(fields, "transfer_id", report.Result.TransferID)...)
			continue
		}
		r.logger.Warnw("Environment run failed", append(fields, "error_type", apperrors.GetType(report.Err), "error", report.Err)...)
	}
}
