// Package di provides dependency injection configuration for the home
// library server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/auth"
	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/di/providers"
	"github.com/homelibrary/homelibrary-server/internal/logger"
	"github.com/homelibrary/homelibrary-server/internal/service"
	"github.com/homelibrary/homelibrary-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Metadata
	do.Provide(injector, providers.ProvideResolver)

	// Auth
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideAuthService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every service in dependency order. The store
// provider migrates the schema, so a migration failure surfaces here,
// before the HTTP server is created. The search index is filled from the
// store when empty.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.ResolverHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}

// Shutdown stops every invoked service in reverse dependency order. It
// returns nil when all of them stopped cleanly.
func Shutdown(injector *do.RootScope) error {
	report := injector.Shutdown()
	if report == nil || report.Succeed {
		return nil
	}
	return report
}
