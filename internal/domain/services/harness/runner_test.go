package harness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	"github.com/stack-service/circle_transfer/internal/domain/services/transfer"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
	"github.com/stack-service/circle_transfer/pkg/logger"
)

// stubCircle is a minimal Circle business account API
type stubCircle struct {
	recipients   string
	createStatus int
	createBody   string
	listStatus   int
	onList       func()

	listCalls   int32
	createCalls int32

	mu   sync.Mutex
	keys []string
}

func (s *stubCircle) idempotencyKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func (s *stubCircle) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/businessAccount/wallets/addresses/recipient", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.listCalls, 1)
		if s.onList != nil {
			s.onList()
		}
		if s.listStatus != 0 {
			w.WriteHeader(s.listStatus)
			_, _ = w.Write([]byte(`{"code":-1,"message":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(s.recipients))
	})
	mux.HandleFunc("/v1/businessAccount/transfers", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.createCalls, 1)
		var req entities.CircleTransferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.keys = append(s.keys, req.IdempotencyKey)
		s.mu.Unlock()

		status := s.createStatus
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(s.createBody))
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"pong"}`))
	})
	return mux
}

type testHarness struct {
	runner     *Runner
	sandbox    *stubCircle
	production *stubCircle
	logs       *observer.ObservedLogs
}

func newTestHarness(t *testing.T, sandbox, production *stubCircle) *testHarness {
	t.Helper()

	sandboxServer := httptest.NewServer(sandbox.handler(t))
	t.Cleanup(sandboxServer.Close)
	productionServer := httptest.NewServer(production.handler(t))
	t.Cleanup(productionServer.Close)

	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewLogger(zap.New(core))

	urls := map[entities.Environment]string{
		entities.EnvironmentSandbox:    sandboxServer.URL,
		entities.EnvironmentProduction: productionServer.URL,
	}
	creds := entities.Credentials{SandboxAPIKey: "SAND_API_KEY:test", ProductionAPIKey: "LIVE_API_KEY:test"}

	factory := func(env entities.Environment) (TransferService, error) {
		service, err := transfer.NewServiceForEnvironment(env, creds,
			transfer.ClientOptions{BaseURL: urls[env], Timeout: 5 * time.Second}, log)
		if err != nil {
			return nil, err
		}
		return service, nil
	}

	return &testHarness{
		runner:     NewRunner(factory, log),
		sandbox:    sandbox,
		production: production,
		logs:       logs,
	}
}

func testParams() entities.TestParameters {
	return entities.TestParameters{
		SandboxDestination:    entities.Destination{Address: "0xABC", Chain: "ETH"},
		ProductionDestination: entities.Destination{Address: "0xdef", Chain: "ETH"},
		Amount:                "10.00",
		Currency:              "USD",
	}
}

const createdBody = `{"data":{"id":"tr-1","destination":{"type":"verified_blockchain","address":"0xabc","chain":"ETH"},"amount":{"amount":"10.00","currency":"USD"},"status":"pending"}}`

func TestRun_SandboxSucceedsProductionHasNoRecipient(t *testing.T) {
	sandbox := &stubCircle{
		recipients: `{"data":[{"id":"rcpt-1","address":"0xabc","chain":"ETH","currency":"USD"}]}`,
		createBody: createdBody,
	}
	production := &stubCircle{recipients: `{"data":[]}`}
	h := newTestHarness(t, sandbox, production)

	reports, err := h.runner.Run(context.Background(), testParams())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	sandboxReport := reports[0]
	assert.Equal(t, entities.EnvironmentSandbox, sandboxReport.Environment)
	assert.True(t, sandboxReport.Succeeded())
	assert.Equal(t, StageDone, sandboxReport.Stage)
	assert.Equal(t, "rcpt-1", sandboxReport.RecipientID)
	assert.Equal(t, "tr-1", sandboxReport.Result.TransferID)
	assert.Equal(t, "created", sandboxReport.Outcome())
	assert.Equal(t, int32(1), atomic.LoadInt32(&sandbox.createCalls))
	keys := sandbox.idempotencyKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, sandboxReport.Result.IdempotencyKey, keys[0])

	productionReport := reports[1]
	assert.Equal(t, entities.EnvironmentProduction, productionReport.Environment)
	assert.False(t, productionReport.Succeeded())
	assert.Equal(t, StageResolvingRecipient, productionReport.Stage)
	assert.True(t, apperrors.IsType(productionReport.Err, apperrors.ErrorTypeRecipientNotFound))
	assert.Equal(t, "recipient_not_found", productionReport.Outcome())
	assert.Equal(t, int32(1), atomic.LoadInt32(&production.listCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&production.createCalls))

	assert.Equal(t, 1, h.logs.FilterMessage("Could not find recipient in production environment").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("Transfer created in sandbox environment").Len())
}

func TestRun_SandboxLookupFailureDoesNotStopProduction(t *testing.T) {
	sandbox := &stubCircle{listStatus: http.StatusServiceUnavailable}
	production := &stubCircle{
		recipients: `{"data":[{"id":"rcpt-9","address":"0xDEF","chain":"ETH"}]}`,
		createBody: createdBody,
	}
	h := newTestHarness(t, sandbox, production)

	reports, err := h.runner.Run(context.Background(), testParams())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.True(t, apperrors.IsType(reports[0].Err, apperrors.ErrorTypeExternal))
	assert.Equal(t, "lookup_failed", reports[0].Outcome())
	assert.Equal(t, int32(0), atomic.LoadInt32(&sandbox.createCalls))

	assert.True(t, reports[1].Succeeded())
	assert.Equal(t, "rcpt-9", reports[1].RecipientID)
}

func TestRun_TransferRejected(t *testing.T) {
	sandbox := &stubCircle{
		recipients:   `{"data":[{"id":"rcpt-1","address":"0xabc","chain":"ETH"}]}`,
		createStatus: http.StatusBadRequest,
		createBody:   `{"code":2,"message":"Invalid entity.","errors":[{"error":"insufficient_funds","location":"amount","message":"insufficient funds"}]}`,
	}
	production := &stubCircle{
		recipients: `{"data":[{"id":"rcpt-9","address":"0xdef","chain":"ETH"}]}`,
		createBody: createdBody,
	}
	h := newTestHarness(t, sandbox, production)

	reports, err := h.runner.Run(context.Background(), testParams())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, StageCreatingTransfer, reports[0].Stage)
	assert.True(t, apperrors.IsType(reports[0].Err, apperrors.ErrorTypeTransferCreation))
	assert.Equal(t, "failed", reports[0].Outcome())
	assert.Equal(t, int32(1), atomic.LoadInt32(&sandbox.createCalls))
	assert.Equal(t, 1, h.logs.FilterMessage("Failed to create transfer in sandbox environment").Len())

	assert.True(t, reports[1].Succeeded())
}

func TestRun_ChainMustMatch(t *testing.T) {
	sandbox := &stubCircle{recipients: `{"data":[{"id":"rcpt-1","address":"0xabc","chain":"SOL"}]}`}
	production := &stubCircle{recipients: `{"data":[]}`}
	h := newTestHarness(t, sandbox, production)

	reports, err := h.runner.Run(context.Background(), testParams())
	require.NoError(t, err)

	assert.True(t, apperrors.IsType(reports[0].Err, apperrors.ErrorTypeRecipientNotFound))
	assert.Equal(t, int32(0), atomic.LoadInt32(&sandbox.createCalls))
}

func TestRun_FatalFactoryError(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	calls := 0
	runner := NewRunner(func(env entities.Environment) (TransferService, error) {
		calls++
		return nil, apperrors.Configuration("API key for sandbox environment is not set")
	}, logger.NewLogger(zap.New(core)))

	reports, err := runner.Run(context.Background(), testParams())
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.Empty(t, reports)
	assert.Equal(t, 1, calls)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	sandbox := &stubCircle{recipients: `{"data":[{"id":"rcpt-1","address":"0xabc","chain":"ETH"}]}`, createBody: createdBody}
	production := &stubCircle{recipients: `{"data":[{"id":"rcpt-9","address":"0xdef","chain":"ETH"}]}`, createBody: createdBody}
	h := newTestHarness(t, sandbox, production)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := h.runner.Run(ctx, testParams())
	require.Error(t, err)
	assert.Empty(t, reports)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCanceled))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, int32(0), atomic.LoadInt32(&sandbox.listCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&production.listCalls))
	assert.Equal(t, 1, h.logs.FilterMessage("Run interrupted").Len())
}

func TestRun_CanceledDuringSandboxSkipsProduction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sandbox := &stubCircle{
		recipients: `{"data":[{"id":"rcpt-1","address":"0xabc","chain":"ETH"}]}`,
		createBody: createdBody,
		onList:     cancel,
	}
	production := &stubCircle{recipients: `{"data":[{"id":"rcpt-9","address":"0xdef","chain":"ETH"}]}`, createBody: createdBody}
	h := newTestHarness(t, sandbox, production)

	reports, err := h.runner.Run(ctx, testParams())
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCanceled))

	require.Len(t, reports, 1)
	assert.Equal(t, entities.EnvironmentSandbox, reports[0].Environment)
	assert.False(t, reports[0].Succeeded())

	assert.Equal(t, int32(1), atomic.LoadInt32(&sandbox.listCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&production.listCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&production.createCalls))
}

func TestPing_Canceled(t *testing.T) {
	h := newTestHarness(t, &stubCircle{}, &stubCircle{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := h.runner.Ping(ctx)
	require.Error(t, err)
	assert.Empty(t, reports)
	assert.True(t, apperrors.IsFatal(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	h := newTestHarness(t, &stubCircle{}, &stubCircle{})

	reports, err := h.runner.Ping(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, report := range reports {
		assert.NoError(t, report.Err)
	}
	assert.Equal(t, entities.EnvironmentSandbox, reports[0].Environment)
	assert.Equal(t, entities.EnvironmentProduction, reports[1].Environment)
}

func TestLogSummary(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	runner := NewRunner(nil, logger.NewLogger(zap.New(core)))

	runner.LogSummary([]RunReport{
		{Environment: entities.EnvironmentSandbox, Stage: StageDone, RecipientID: "rcpt-1",
			Result: entities.TransferResult{TransferID: "tr-1"}},
		{Environment: entities.EnvironmentProduction, Stage: StageResolvingRecipient,
			Err: apperrors.RecipientNotFound("production", "0xdef", "ETH")},
	})

	assert.Equal(t, 1, logs.FilterMessage("Environment run succeeded").Len())
	failed := logs.FilterMessage("Environment run failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "recipient_not_found", failed[0].ContextMap()["outcome"])
}
