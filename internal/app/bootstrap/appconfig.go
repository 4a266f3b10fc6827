// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; CoreConfig covers
// framework-level settings like ports, TLS, and logging.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Article body encryption. Exactly one source must be configured:
	// a raw hex key (16/24/32 bytes once decoded) or a passphrase that
	// is stretched into a 32-byte key. The key is shared by every
	// encryption operation; it is never baked into the binary.
	ArticleKeyHex        string
	ArticleKeyPassphrase string

	// Directory where backup files are written and read.
	BackupDir string
}
