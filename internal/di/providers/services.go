package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/auth"
	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/logger"
	"github.com/homelibrary/homelibrary-server/internal/service"
	"github.com/homelibrary/homelibrary-server/internal/validation"
)

// ProvideCatalogService provides the catalog service. Resolving the store
// here means migration has finished before any request can reach it.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	resolverHandle := do.MustInvoke[*ResolverHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	cfg := do.MustInvoke[*config.Config](i)

	return service.NewCatalogService(
		storeHandle.Store,
		resolverHandle.Resolver,
		indexHandle.SearchIndex,
		validator,
		log.Logger,
		service.WithResolveBudget(resolveBudget(cfg.Server.WriteTimeout)),
	), nil
}

// resolveBudget leaves a quarter of the HTTP write timeout for storing the
// book and writing the response.
func resolveBudget(writeTimeout time.Duration) time.Duration {
	return writeTimeout * 3 / 4
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, validator, log.Logger), nil
}
