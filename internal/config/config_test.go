package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/caseline",
		LogDir:  "/home/user/.local/share/caseline/log",
		Remote: RemoteConfig{
			BaseURL:     "https://rapidpro.example.com",
			PageRetries: 5,
		},
		Orgs: []OrgConfig{
			{Name: "unicef", Token: "token-a"},
			{Name: "redcross", Token: "token-b"},
		},
		Sync: SyncConfig{
			IncludeURNs: true,
			MutexGroups: [][]string{{"g-reg", "g-fup"}},
		},
		Database: DatabaseConfig{Path: "/home/user/.local/share/caseline/caseline.db"},
		Vault:    VaultConfig{Type: "s3", Name: "offsite", S3Bucket: "caseline-exports", S3Region: "eu-west-1"},
		Spool:    SpoolConfig{Type: "memory", MaxSize: 2048},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/home/user/.local/share/caseline/keys/caseline.pub",
			PrivateKeyPath: "/home/user/.local/share/caseline/keys/caseline.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Remote.BaseURL != original.Remote.BaseURL {
		t.Errorf("Remote.BaseURL = %q, want %q", got.Remote.BaseURL, original.Remote.BaseURL)
	}
	if got.Remote.PageRetries != 5 {
		t.Errorf("Remote.PageRetries = %d, want 5", got.Remote.PageRetries)
	}
	if len(got.Orgs) != 2 {
		t.Fatalf("len(Orgs) = %d, want 2", len(got.Orgs))
	}
	if got.Orgs[1].Name != "redcross" || got.Orgs[1].Token != "token-b" {
		t.Errorf("Orgs[1] = %+v, want redcross/token-b", got.Orgs[1])
	}
	if !got.Sync.IncludeURNs {
		t.Error("Sync.IncludeURNs = false, want true")
	}
	if len(got.Sync.MutexGroups) != 1 || len(got.Sync.MutexGroups[0]) != 2 {
		t.Fatalf("Sync.MutexGroups = %v, want one set of two", got.Sync.MutexGroups)
	}
	if got.Database.Path != original.Database.Path {
		t.Errorf("Database.Path = %q, want %q", got.Database.Path, original.Database.Path)
	}
	if got.Vault.Type != "s3" || got.Vault.S3Bucket != "caseline-exports" {
		t.Errorf("Vault = %+v, want s3/caseline-exports", got.Vault)
	}
	if got.Spool.MaxSize != 2048 {
		t.Errorf("Spool.MaxSize = %d, want %d", got.Spool.MaxSize, 2048)
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/caseline")

	if cfg.BaseDir != "/data/caseline" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/caseline")
	}
	if cfg.LogDir != "/data/caseline/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/caseline/log")
	}
	if cfg.Database.Path != "/data/caseline/caseline.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/data/caseline/caseline.db")
	}
	if cfg.Vault.Type != "filesystem" || cfg.Vault.FSVaultRoot != "/data/caseline/vault" {
		t.Errorf("Vault = %+v, want filesystem rooted under base dir", cfg.Vault)
	}
	if cfg.Spool.Type != "filesystem" || cfg.Spool.MaxSize <= 0 {
		t.Errorf("Spool = %+v, want filesystem with positive max size", cfg.Spool)
	}
	if cfg.Encryption.PublicKeyPath != "/data/caseline/keys/caseline.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/caseline/keys/caseline.pub")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/caseline/keys/caseline.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", cfg.Encryption.PrivateKeyPath, "/data/caseline/keys/caseline.key")
	}
}

func TestConfig_Org(t *testing.T) {
	cfg := &Config{Orgs: []OrgConfig{{Name: "unicef", Token: "t1"}}}

	if org := cfg.Org("unicef"); org == nil || org.Token != "t1" {
		t.Errorf("Org(unicef) = %+v, want token t1", org)
	}
	if org := cfg.Org("unknown"); org != nil {
		t.Errorf("Org(unknown) = %+v, want nil", org)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		orgs    []OrgConfig
		wantErr bool
	}{
		{"no orgs", nil, false},
		{"valid orgs", []OrgConfig{{Name: "unicef", Token: "t1"}, {Name: "redcross", Token: "t2"}}, false},
		{"duplicate org name", []OrgConfig{{Name: "unicef", Token: "t1"}, {Name: "unicef", Token: "t2"}}, true},
		{"unnamed org", []OrgConfig{{Name: "", Token: "t1"}}, true},
		{"org without token", []OrgConfig{{Name: "unicef", Token: ""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Orgs: tt.orgs}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "caseline.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "caseline.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "caseline.toml")
		cfg := NewConfig(dir)
		cfg.Orgs = []OrgConfig{{Name: "unicef", Token: "secret"}}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Org("unicef") == nil {
			t.Error("Org(unicef) = nil after round trip")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/caseline.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
