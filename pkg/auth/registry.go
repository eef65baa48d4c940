package auth

import (
	"fmt"
	"sync"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// AuthCreator builds a handler from its config block
type AuthCreator func(*config.Auth) (Handler, error)

// AuthRegistry maps auth types to creators
type AuthRegistry struct {
	creators map[config.AuthType]AuthCreator
	mutex    sync.RWMutex
}

// NewAuthRegistry creates a new auth registry with the static credential handlers
func NewAuthRegistry() *AuthRegistry {
	registry := &AuthRegistry{
		creators: make(map[config.AuthType]AuthCreator),
	}

	registry.Register(config.AuthTypeBasic, createBasicAuth)
	registry.Register(config.AuthTypeAPIKey, createAPIKeyAuth)
	registry.Register(config.AuthTypeBearer, createBearerAuth)
	return registry
}

// Register adds a new auth creator to the registry
func (r *AuthRegistry) Register(authType config.AuthType, creator AuthCreator) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.creators[authType] = creator
}

// Create creates an auth handler based on the config
func (r *AuthRegistry) Create(authConfig *config.Auth) (Handler, error) {
	r.mutex.RLock()
	creator, exists := r.creators[authConfig.Type]
	r.mutex.RUnlock()

	if !exists {
		return nil, errors.WrapError(
			fmt.Errorf("unsupported auth type: %s", authConfig.Type),
			errors.ErrConfiguration,
			"invalid auth type",
		)
	}

	return creator(authConfig)
}

var defaultRegistry = NewAuthRegistry()

// CreateHandler builds a handler from the default registry.
// A nil config means no auth and yields a nil handler.
func CreateHandler(authConfig *config.Auth) (Handler, error) {
	if authConfig == nil {
		return nil, nil
	}
	return defaultRegistry.Create(authConfig)
}

// RegisterAuthHandler adds a custom creator to the default registry
func RegisterAuthHandler(authType config.AuthType, creator AuthCreator) {
	defaultRegistry.Register(authType, creator)
}

func createBasicAuth(authConfig *config.Auth) (Handler, error) {
	if authConfig.Basic == nil {
		return nil, errors.WrapError(
			fmt.Errorf("basic auth configuration is required"),
			errors.ErrConfiguration,
			"create basic auth",
		)
	}
	return NewBasicAuth(authConfig.Basic.Username, authConfig.Basic.Password), nil
}

func createAPIKeyAuth(authConfig *config.Auth) (Handler, error) {
	if authConfig.APIKey == nil {
		return nil, errors.WrapError(
			fmt.Errorf("api key configuration is required"),
			errors.ErrConfiguration,
			"create API key auth",
		)
	}
	return NewAPIKeyAuth(
		authConfig.APIKey.Header,
		authConfig.APIKey.QueryParam,
		authConfig.APIKey.Value,
	), nil
}

func createBearerAuth(authConfig *config.Auth) (Handler, error) {
	if authConfig.Bearer == nil {
		return nil, errors.WrapError(
			fmt.Errorf("bearer token configuration is required"),
			errors.ErrConfiguration,
			"create bearer auth",
		)
	}
	return NewTokenAuth(authConfig.Bearer.Scheme, authConfig.Bearer.Token), nil
}
