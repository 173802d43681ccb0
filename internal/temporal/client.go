package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/efebarandurmaz/varnet/internal/config"
	"github.com/efebarandurmaz/varnet/internal/secrets"
)

// ClientOptions builds the client options for cfg. A temporal_api_key
// secret, when present, authenticates the connection.
func ClientOptions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (client.Options, error) {
	opts := client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	}

	store, err := secrets.NewManager(&cfg.Secrets)
	if err != nil {
		return opts, err
	}
	key, err := store.Resolve(ctx, secrets.SecretTemporalAPIKey, "")
	if err != nil {
		return opts, fmt.Errorf("resolve temporal api key: %w", err)
	}
	if key != "" {
		opts.Credentials = client.NewAPIKeyStaticCredentials(key)
	}
	return opts, nil
}

// Dial connects to the Temporal frontend named in cfg.
func Dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (client.Client, error) {
	opts, err := ClientOptions(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c, err := client.Dial(opts)
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}
