package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for caseline.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Remote     RemoteConfig     `toml:"remote"`
	Orgs       []OrgConfig      `toml:"orgs"`
	Sync       SyncConfig       `toml:"sync"`
	Database   DatabaseConfig   `toml:"database"`
	Vault      VaultConfig      `toml:"vault"`
	Spool      SpoolConfig      `toml:"spool"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// RemoteConfig holds the connection settings for the messaging platform.
type RemoteConfig struct {
	BaseURL string `toml:"base_url"`

	// PageRetries caps retries of a rate-limited page fetch.
	// Zero uses the client default.
	PageRetries int `toml:"page_retries"`
}

// OrgConfig identifies one org on the platform and its API token.
type OrgConfig struct {
	Name  string `toml:"name"`
	Token string `toml:"token"`
}

// SyncConfig holds org-independent sync behavior.
type SyncConfig struct {
	// IncludeURNs makes URN changes count when deciding whether a
	// contact needs a local update.
	IncludeURNs bool `toml:"include_urns"`

	// MutexGroups lists mutually-exclusive group sets by group UUID.
	// When contact snapshots are merged, at most one group of each set
	// survives.
	MutexGroups [][]string `toml:"mutex_groups"`
}

// DatabaseConfig holds the path of the local SQLite database.
// ":memory:" is accepted for throwaway runs.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores

	// Static credentials for the bucket. When empty the AWS default
	// credential chain applies.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// SpoolConfig represents configuration for the export spool.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SpoolConfig struct {
	Type     string `toml:"type"`                // "memory" or "filesystem"
	SpoolDir string `toml:"spool_dir,omitempty"` // only used for type=filesystem
	MaxSize  int64  `toml:"max_size"`            // max total size in bytes; must be positive
}

// EncryptionConfig holds paths to the age key pair used for export encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a Config rooted at baseDir with default paths filled in.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Path: filepath.Join(baseDir, "caseline.db"),
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Spool: SpoolConfig{
			Type:     "filesystem",
			SpoolDir: filepath.Join(baseDir, "spool"),
			MaxSize:  100 * 1024 * 1024,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "caseline.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "caseline.key"),
		},
	}
}

// Org returns the named org's configuration, or nil if it is not configured.
func (c *Config) Org(name string) *OrgConfig {
	for i := range c.Orgs {
		if c.Orgs[i].Name == name {
			return &c.Orgs[i]
		}
	}
	return nil
}

// Validate checks the org list for entries that would silently shadow each
// other or fail on first use. The remote base URL is not required here; it
// is checked when an org's client is built.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i := range c.Orgs {
		org := &c.Orgs[i]
		if org.Name == "" {
			return fmt.Errorf("org %d has no name", i)
		}
		if seen[org.Name] {
			return fmt.Errorf("org %q is configured twice", org.Name)
		}
		seen[org.Name] = true
		if org.Token == "" {
			return fmt.Errorf("org %q has no token", org.Name)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
