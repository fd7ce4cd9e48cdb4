package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job the harness reports under
const JobName = "circle_transfer"

// Push sends the default registry to a Pushgateway
func Push(ctx context.Context, gatewayURL string) error {
	return PushGatherer(ctx, gatewayURL, prometheus.DefaultGatherer)
}

// PushGatherer sends the metrics of g to a Pushgateway
func PushGatherer(ctx context.Context, gatewayURL string, g prometheus.Gatherer) error {
	if gatewayURL == "" {
		return nil
	}

	if err := push.New(gatewayURL, JobName).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
