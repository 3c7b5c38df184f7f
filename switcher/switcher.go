package switcher

import (
	"context"
	"fmt"

	"github.com/ducbang/OpenNIC-Wizard/api"
	platform "github.com/ducbang/OpenNIC-Wizard/dns/platform"
	"github.com/ducbang/OpenNIC-Wizard/logger"
)

// Config holds the service loop options
type Config struct {
	LogLevel string

	// API settings
	EnableAPI  bool
	HTTPAddr   string
	SocketPath string

	Version string

	// Servers is applied once after startup when not empty
	Servers []string
}

// Run preserves the resolver configuration, serves resolver updates until ctx is
// cancelled or an exit is requested through the API, then restores the saved
// configuration.
func Run(ctx context.Context, system platform.ResolverSystem, config Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if config.LogLevel != "" {
		logger.GetLogger().SetLevel(logger.ParseLevel(config.LogLevel))
	}

	logger.Info("Starting resolver switcher with backend %s", system.Name())
	system.Startup()
	defer func() {
		system.Shutdown()
		logger.Info("Resolver switcher shut down")
	}()

	if len(config.Servers) > 0 {
		if _, err := platform.ApplyResolvers(ctx, system, config.Servers); err != nil {
			logger.Error("Failed to apply initial resolvers: %v", err)
		}
	}

	if config.EnableAPI {
		var apiServer *api.API
		if config.HTTPAddr != "" {
			apiServer = api.NewAPI(config.HTTPAddr, system)
		} else {
			apiServer = api.NewAPISocket(config.SocketPath, system)
		}
		apiServer.SetVersion(config.Version)

		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("start api: %w", err)
		}
		defer apiServer.Stop()

		return serve(ctx, system, apiServer)
	}

	<-ctx.Done()
	logger.Info("Context cancelled, shutting down")
	return nil
}

// serve handles one update request at a time so sessions never interleave.
func serve(ctx context.Context, system platform.ResolverSystem, apiServer *api.API) error {
	updates := apiServer.GetUpdateChannel()
	shutdown := apiServer.GetShutdownChannel()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, shutting down")
			return nil

		case <-shutdown:
			logger.Info("Shutdown requested via API")
			return nil

		case req := <-updates:
			applied, err := platform.ApplyResolvers(ctx, system, req.Servers)
			if err != nil {
				logger.Error("Failed to update resolvers: %v", err)
				req.Respond(api.UpdateResult{Applied: applied, Error: err.Error()})
				continue
			}
			apiServer.RecordUpdate(applied)
			req.Respond(api.UpdateResult{Applied: applied})
		}
	}
}
