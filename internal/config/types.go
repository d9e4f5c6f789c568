package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global        GlobalConfig        `mapstructure:"global"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	Restore       RestoreConfig       `mapstructure:"restore"`
	Remap         RemapConfig         `mapstructure:"remap"`
	Export        ExportConfig        `mapstructure:"export"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	LockDir          string        `mapstructure:"lock_dir"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ConfigPassphrase string        `mapstructure:"config_passphrase"` // optional; may come from env
	// Scene is the scene document the CLI operates on.
	Scene string `mapstructure:"scene"`
}

type SnapshotConfig struct {
	Root       string    `mapstructure:"root"`
	Provider   string    `mapstructure:"provider"` // full, materials
	Scope      string    `mapstructure:"scope"`    // corpus, entity, subtree
	Target     string    `mapstructure:"target"`   // node path for entity/subtree scopes
	Categories []string  `mapstructure:"categories"`
	Label      string    `mapstructure:"label"`
	Retention  Retention `mapstructure:"retention"`
}

type RestoreConfig struct {
	DryRun          bool     `mapstructure:"dry_run"`
	Categories      []string `mapstructure:"categories"`
	RequireManifest bool     `mapstructure:"require_manifest"`
	ProgressEvery   int      `mapstructure:"progress_every"`
	// SaveScene writes the restored scene back to its document before the target
	// lock is released. Ignored in dry-run.
	SaveScene bool `mapstructure:"save_scene"`
}

// RemapConfig extends the built-in shader synonym and skip tables.
type RemapConfig struct {
	Skip       []string          `mapstructure:"skip"`
	Synonyms   map[string]string `mapstructure:"synonyms"`
	NoDefaults bool              `mapstructure:"no_defaults"`
}

type ExportConfig struct {
	Compression   string        `mapstructure:"compression"` // none, gzip, zstd
	Encryption    bool          `mapstructure:"encryption"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	Idempotent    bool          `mapstructure:"idempotent"`
	Retention     Retention     `mapstructure:"retention"`
}

type Retention struct {
	KeepLast int   `mapstructure:"keep_last"`
	KeepDays int   `mapstructure:"keep_days"`
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// Enabled reports whether any limit is set.
func (r Retention) Enabled() bool {
	return r.KeepLast > 0 || r.KeepDays > 0 || r.MaxBytes > 0
}

type StorageConfig struct {
	Backend string     `mapstructure:"backend"` // local, s3
	Local   LocalStore `mapstructure:"local"`
	S3      S3Store    `mapstructure:"s3"`
	Prefix  string     `mapstructure:"prefix"`
}

type LocalStore struct {
	Path string `mapstructure:"path"`
}

type S3Store struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	SessionToken    string `mapstructure:"session_token"`
	TLSInsecureSkip bool   `mapstructure:"tls_insecure_skip"`
}

type NotificationsConfig struct {
	Webhooks   []WebhookConfig  `mapstructure:"webhooks"`
	Mattermost []MattermostHook `mapstructure:"mattermost"`
	Matrix     []MatrixConfig   `mapstructure:"matrix"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type MattermostHook struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type MatrixConfig struct {
	Name        string `mapstructure:"name"`
	ServerURL   string `mapstructure:"server_url"`
	AccessToken string `mapstructure:"access_token"`
	RoomID      string `mapstructure:"room_id"`
}
