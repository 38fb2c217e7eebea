package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eta-consult/quote-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	ApiKey     ApiKeyConfig
	Storage    StorageConfig
	Secrets    SecretsConfig
	Logging    LoggingConfig
	Server     ServerConfig
	CORS       CORSConfig
	Security   SecurityConfig
	RateLimit  RateLimitConfig
	Accounting AccountingConfig
	GeoData    GeoDataConfig
	Distance   DistanceConfig
	Catalog    CatalogConfig
	Jobs       JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	// Enabled controls the submission audit trail; the quote workflow runs without it
	Enabled         bool
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type ApiKeyConfig struct {
	SecretName string
	Value      string // Loaded from secrets or environment
}

// StorageConfig controls where submitted quote payloads are archived
type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	QuotesPerMinute   int      // per operator; 0 disables the cap
	WhitelistIPs      []string // addresses or CIDR ranges
	WhitelistPaths    []string
}

// AccountingConfig describes the external accounting API and the fixed
// identifiers it expects on counterparts and quotes.
type AccountingConfig struct {
	BaseURL           string
	Token             string
	Timeout           int // seconds
	RequestsPerSecond float64
	Burst             int

	IndividualTypeID int
	CompanyTypeID    int
	CountryID        int
	LanguageID       int
	UserID           int
	OwnerID          int

	// Counterpart salutation ids for Mme and M.
	MadameSalutationID   int
	MonsieurSalutationID int

	TaxID      int
	UnitID     int
	HourUnitID int
	MwstType   int
	CurrencyID int

	// RelationDescription is attached to company -> individual relations
	RelationDescription string
	// FooterSource is appended to the payment-terms footer
	FooterSource string
}

type GeoDataConfig struct {
	SearchURL     string
	FeatureURL    string
	Layer         string
	Timeout       int // seconds
	CacheCapacity int
}

type DistanceConfig struct {
	URL           string
	APIKey        string
	Timeout       int // seconds
	OfficeAddress string
}

type CatalogConfig struct {
	TariffsPath string
	TextsPath   string
	// Watch hot-swaps tariffs and texts when their files change
	Watch bool
}

type JobsConfig struct {
	Enabled           bool
	CachePurgeCron    string
	StaleSweepCron    string
	StaleAfterMinutes int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func (a *AccountingConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

func (g *GeoDataConfig) TimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

func (d *DistanceConfig) TimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// StaleAfter returns the age after which a pending submission is considered abandoned
func (j *JobsConfig) StaleAfter() time.Duration {
	return time.Duration(j.StaleAfterMinutes) * time.Minute
}

// Load loads configuration from file and environment variables.
// Secrets are only read from the environment here; use LoadWithSecrets
// to resolve them from Key Vault.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("QUOTE_API_KEY")
	}
	if cfg.Accounting.Token == "" {
		cfg.Accounting.Token = v.GetString("BEXIO_API_TOKEN")
	}
	if cfg.Distance.APIKey == "" {
		cfg.Distance.APIKey = v.GetString("GOOGLE_MAPS_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
//
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is
// staging or production. Otherwise secrets come from environment variables.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if err := applySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)
	return cfg, nil
}

// SecretSource is the subset of the secrets provider used to fill the config
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error)
}

func applySecrets(ctx context.Context, cfg *Config, provider SecretSource) error {
	token, err := provider.GetSecretOrEnv(ctx, "BEXIO-API-TOKEN", "BEXIO_API_TOKEN")
	if err != nil || token == "" {
		return fmt.Errorf("accounting API token is required: %w", err)
	}
	cfg.Accounting.Token = token

	// The distance key is optional: without it every distance resolves to 0
	if key, err := provider.GetSecretOrEnv(ctx, "GOOGLE-MAPS-API-KEY", "GOOGLE_MAPS_API_KEY"); err == nil && key != "" {
		cfg.Distance.APIKey = key
	}
	if apiKey, err := provider.GetSecretOrEnv(ctx, "quote-api-key", "QUOTE_API_KEY"); err == nil && apiKey != "" {
		cfg.ApiKey.Value = apiKey
	}

	if cfg.Database.Enabled {
		if host, err := provider.GetSecretOrEnv(ctx, "POSTGRES-QUOTES-HOST", "DATABASE_HOST"); err == nil && host != "" {
			cfg.Database.Host = host
		}
		if user, err := provider.GetSecretOrEnv(ctx, "POSTGRES-QUOTES-USER", "DATABASE_USER"); err == nil && user != "" {
			cfg.Database.User = user
		}
		if password, err := provider.GetSecretOrEnv(ctx, "POSTGRES-QUOTES-PASSWORD", "DATABASE_PASSWORD"); err == nil && password != "" {
			cfg.Database.Password = password
		}
	}

	if cfg.Storage.Mode == "cloud" {
		if connStr, err := provider.GetSecretOrEnv(ctx, "storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING"); err == nil && connStr != "" {
			cfg.Storage.CloudConnectionString = connStr
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Eta Quote API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults (audit trail)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "quotes")
	v.SetDefault("database.user", "quotes_user")
	v.SetDefault("database.password", "quotes_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.connMaxLifetime", 300)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "quotes")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.requestTimeout", 110)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-API-Key", "X-Operator", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"X-Request-ID"})
	v.SetDefault("cors.allowCredentials", false)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'none'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "no-referrer")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.quotesPerMinute", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health/*"})

	// Accounting API defaults
	v.SetDefault("accounting.baseURL", "https://api.bexio.com")
	v.SetDefault("accounting.timeout", 30)
	v.SetDefault("accounting.requestsPerSecond", 5)
	v.SetDefault("accounting.burst", 5)
	v.SetDefault("accounting.individualTypeID", 1)
	v.SetDefault("accounting.companyTypeID", 2)
	v.SetDefault("accounting.countryID", 1)
	v.SetDefault("accounting.languageID", 2)
	v.SetDefault("accounting.userID", 1)
	v.SetDefault("accounting.ownerID", 1)
	v.SetDefault("accounting.madameSalutationID", 1)
	v.SetDefault("accounting.monsieurSalutationID", 2)
	v.SetDefault("accounting.taxID", 16)
	v.SetDefault("accounting.unitID", 1)
	v.SetDefault("accounting.hourUnitID", 2)
	v.SetDefault("accounting.mwstType", 0)
	v.SetDefault("accounting.currencyID", 1)
	v.SetDefault("accounting.relationDescription", "Personne de contact")
	v.SetDefault("accounting.footerSource", "Source : Script Runner - Êta Consult Sàrl")

	// Building registry defaults
	v.SetDefault("geoData.searchURL", "https://api3.geo.admin.ch/rest/services/api/SearchServer")
	v.SetDefault("geoData.featureURL", "https://api3.geo.admin.ch/rest/services/api/MapServer")
	v.SetDefault("geoData.layer", "ch.bfs.gebaeude_wohnungs_register")
	v.SetDefault("geoData.timeout", 30)
	v.SetDefault("geoData.cacheCapacity", 100)

	// Distance defaults
	v.SetDefault("distance.url", "https://maps.googleapis.com/maps/api/distancematrix/json")
	v.SetDefault("distance.timeout", 30)
	v.SetDefault("distance.officeAddress", "Route de l'Hôpital 16b, 1180 Rolle, Suisse")

	// Catalog defaults
	v.SetDefault("catalog.tariffsPath", "./config/tariffs.json")
	v.SetDefault("catalog.textsPath", "./config/texts.json")
	v.SetDefault("catalog.watch", true)

	// Jobs defaults
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.cachePurgeCron", "0 0 3 * * *")
	v.SetDefault("jobs.staleSweepCron", "0 */15 * * * *")
	v.SetDefault("jobs.staleAfterMinutes", 60)
}
