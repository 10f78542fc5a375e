package providers

import (
	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/auth"
	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/logger"
)

// ProvideTokenService loads the token key from the data directory,
// generating it on first start, and builds the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}
	cfg.Auth.AccessTokenKey = key

	tokens, err := auth.NewTokenService(key, cfg.Auth.AccessTokenDuration)
	if err != nil {
		return nil, err
	}

	log.Info("Token service ready", "access_token_duration", cfg.Auth.AccessTokenDuration)
	return tokens, nil
}
