// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/helphub/internal/app/system/bodycipher"
)

// appConfigKeys defines the configuration keys for HelpHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, article_key, etc.
//   - Environment variables: HELPHUB_MONGO_URI, HELPHUB_ARTICLE_KEY, etc.
//   - Command-line flags: --mongo_uri, --article_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "helphub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Article body encryption; exactly one of these must be set.
	{Name: "article_key", Default: "", Desc: "Hex-encoded AES key for article bodies (16/24/32 bytes)"},
	{Name: "article_key_passphrase", Default: "", Desc: "Passphrase stretched into the article body key when article_key is not set"},

	{Name: "backup_dir", Default: "./backups", Desc: "Directory for article backup files"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HELPHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		ArticleKeyHex:        appValues.String("article_key"),
		ArticleKeyPassphrase: appValues.String("article_key_passphrase"),

		BackupDir: appValues.String("backup_dir"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// HelpHub validates the MongoDB URI format and the article key material
// so misconfiguration stops startup instead of surfacing on the first
// encrypted write.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if _, err := bodycipher.KeyFromConfig(appCfg.ArticleKeyHex, appCfg.ArticleKeyPassphrase); err != nil {
		logger.Error("invalid article key configuration", zap.Error(err))
		return fmt.Errorf("invalid article key configuration: %w", err)
	}

	if appCfg.BackupDir == "" {
		return fmt.Errorf("backup_dir must not be empty")
	}

	return nil
}
