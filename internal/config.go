package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/filedeck/internal/api"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Index   IndexConfig       `yaml:"index"`
	Upload  UploadConfig      `yaml:"upload"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Upload.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the managed root and the trash root.
type StorageConfig struct {
	ManagedRoot string `yaml:"managed_root"`
	TrashRoot   string `yaml:"trash_root"`
	// CreateDirs creates missing roots at startup.
	CreateDirs bool `yaml:"create_dirs"`
}

// Validate validates the storage configuration. The roots are compared
// lexically here; symlinks are checked again once both exist.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ManagedRoot, validation.Required),
		validation.Field(&c.TrashRoot, validation.Required),
	); err != nil {
		return err
	}
	managed, err := filepath.Abs(c.ManagedRoot)
	if err != nil {
		return fmt.Errorf("storage: managed_root: %w", err)
	}
	trash, err := filepath.Abs(c.TrashRoot)
	if err != nil {
		return fmt.Errorf("storage: trash_root: %w", err)
	}
	if managed == trash {
		return errors.New("storage: managed_root and trash_root must differ")
	}
	if within(trash, managed) || within(managed, trash) {
		return errors.New("storage: managed_root and trash_root must not be nested")
	}
	return nil
}

func within(child, parent string) bool {
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

// IndexConfig holds the SQLite stats cache and trash ledger configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Watch enables the fsnotify watcher over the managed root.
	Watch bool `yaml:"watch"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts as the local operator.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "basic": HTTP Basic authentication against Username and a bcrypt
//     PasswordHash (see the hash-password command).
type AuthConfig struct {
	Mode         string `yaml:"mode"`
	Token        string `yaml:"token"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = api.AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(api.AuthModeDisabled, api.AuthModeToken, api.AuthModeBasic)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case api.AuthModeToken:
		if c.Token == "" {
			return fmt.Errorf("auth: mode is %q but token is empty", api.AuthModeToken)
		}
	case api.AuthModeBasic:
		if c.Username == "" || c.PasswordHash == "" {
			return fmt.Errorf("auth: mode is %q but username or password_hash is empty", api.AuthModeBasic)
		}
		if !strings.HasPrefix(c.PasswordHash, "$2") {
			return errors.New("auth: password_hash is not a bcrypt hash")
		}
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode != api.AuthModeDisabled && c.Mode != ""
}

// Options converts the configuration for the API middleware.
func (c *AuthConfig) Options() api.AuthOptions {
	return api.AuthOptions{
		Mode:         c.Mode,
		Token:        c.Token,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			ManagedRoot: "./public_html",
			TrashRoot:   "./delete_files",
			CreateDirs:  true,
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    "./filedeck.db",
			Watch:   true,
		},
		Upload: UploadConfig{
			MaxBytes: 256 << 20,
		},
		Auth: AuthConfig{
			Mode: api.AuthModeDisabled,
		},
	}
}
