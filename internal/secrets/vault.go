package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// Fetcher retrieves a single secret value by name
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// keyVaultFetcher reads secrets from Azure Key Vault
type keyVaultFetcher struct {
	client *azsecrets.Client
}

func (f *keyVaultFetcher) Fetch(ctx context.Context, name string) (string, error) {
	resp, err := f.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", name)
	}
	return *resp.Value, nil
}

// VaultClient resolves secrets through a Fetcher with an optional TTL cache.
// Safe for concurrent use.
type VaultClient struct {
	fetcher      Fetcher
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	now          func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewVaultClient creates a Key Vault backed client using DefaultAzureCredential
// (environment, managed identity or Azure CLI credentials).
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	logger.Info("Azure Key Vault client initialized",
		zap.String("vault_url", vaultURL),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
	)

	return NewCachingClient(&keyVaultFetcher{client: client}, cfg.CacheEnabled, cfg.CacheTTL, logger), nil
}

// NewCachingClient wraps any Fetcher with the TTL cache
func NewCachingClient(fetcher Fetcher, cacheEnabled bool, ttl time.Duration, logger *zap.Logger) *VaultClient {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &VaultClient{
		fetcher:      fetcher,
		logger:       logger,
		cacheEnabled: cacheEnabled,
		cacheTTL:     ttl,
		now:          time.Now,
		cache:        make(map[string]cachedSecret),
	}
}

// GetSecret returns the cached value when fresh, otherwise fetches it
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	if v.cacheEnabled {
		v.mu.Lock()
		cached, ok := v.cache[name]
		if ok && v.now().Before(cached.expiresAt) {
			v.mu.Unlock()
			return cached.value, nil
		}
		delete(v.cache, name)
		v.mu.Unlock()
	}

	value, err := v.fetcher.Fetch(ctx, name)
	if err != nil {
		v.logger.Error("Failed to get secret", zap.String("secret_name", name), zap.Error(err))
		return "", err
	}

	if v.cacheEnabled {
		v.mu.Lock()
		v.cache[name] = cachedSecret{value: value, expiresAt: v.now().Add(v.cacheTTL)}
		v.mu.Unlock()
	}

	return value, nil
}

// ClearCache drops all cached secrets
func (v *VaultClient) ClearCache() {
	v.mu.Lock()
	v.cache = make(map[string]cachedSecret)
	v.mu.Unlock()
}
