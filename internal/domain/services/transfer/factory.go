package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	"github.com/stack-service/circle_transfer/internal/infrastructure/circle"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
	"github.com/stack-service/circle_transfer/pkg/logger"
)

// ClientOptions carries the per-environment Circle connection settings
type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
}

// NewServiceForEnvironment selects the credential for environment, builds a
// Circle client bound to that environment and wraps it in a Service. An empty
// credential fails with a configuration error before any network call.
func NewServiceForEnvironment(environment entities.Environment, creds entities.Credentials, opts ClientOptions, log *logger.Logger) (*Service, error) {
	apiKey := creds.For(environment)
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperrors.Configuration(fmt.Sprintf("API key for %s environment is not set", environment)).
			WithDetail("environment", environment.String())
	}

	client, err := circle.NewClient(circle.Config{
		APIKey:      apiKey,
		BaseURL:     opts.BaseURL,
		Environment: environment,
		Timeout:     opts.Timeout,
	}, log.Zap())
	if err != nil {
		return nil, err
	}

	return NewService(environment, client, nil, log), nil
}
