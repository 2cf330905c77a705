package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotenv overlays a .env file onto the environment when one is present.
// Missing files are fine; real variables always win.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Credentials is the hut-service login, sourced from the environment.
type Credentials struct {
	Username string
	Password string
}

func CredentialsFromEnv() (Credentials, error) {
	c := Credentials{
		Username: strings.TrimSpace(os.Getenv("HUT_USERNAME")),
		Password: os.Getenv("HUT_PASSWORD"),
	}
	if c.Username == "" || c.Password == "" {
		return Credentials{}, fmt.Errorf("HUT_USERNAME and HUT_PASSWORD must be set (env or .env)")
	}
	return c, nil
}

// DatabaseURL returns the optional history database DSN; empty means the run
// is not recorded.
func DatabaseURL() string {
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

// SnapshotEnv selects the snapshot sink: an S3-compatible bucket when
// SNAPSHOT_S3_ENDPOINT is set, a local directory otherwise.
type SnapshotEnv struct {
	Dir string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

func SnapshotFromEnv() SnapshotEnv {
	return SnapshotEnv{
		Dir:         getenv("SNAPSHOT_DIR", "screens"),
		S3Endpoint:  strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ENDPOINT")),
		S3AccessKey: os.Getenv("SNAPSHOT_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("SNAPSHOT_S3_SECRET_KEY"),
		S3Bucket:    getenv("SNAPSHOT_S3_BUCKET", "hutbook-snapshots"),
		S3Region:    os.Getenv("SNAPSHOT_S3_REGION"),
		S3UseSSL:    os.Getenv("SNAPSHOT_S3_INSECURE") != "1",
	}
}

// ServeEnv is the configuration for the status UI process.
type ServeEnv struct {
	ListenAddr  string
	BaseURL     string
	DatabaseURL string

	CookieHashKey  []byte
	CookieBlockKey []byte
	CredEncKey     []byte // 32 bytes for AES-256-GCM
}

func ServeFromEnv() (ServeEnv, error) {
	cfg := ServeEnv{
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		BaseURL:     getenv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: DatabaseURL(),
	}
	if cfg.DatabaseURL == "" {
		return ServeEnv{}, fmt.Errorf("DATABASE_URL is required for serve")
	}
	var err error
	if cfg.CookieHashKey, err = mustB64("COOKIE_HASH_KEY"); err != nil {
		return ServeEnv{}, err
	}
	if cfg.CookieBlockKey, err = mustB64("COOKIE_BLOCK_KEY"); err != nil {
		return ServeEnv{}, err
	}
	if cfg.CredEncKey, err = mustB64("CRED_ENC_KEY"); err != nil {
		return ServeEnv{}, err
	}
	if len(cfg.CredEncKey) != 32 {
		return ServeEnv{}, fmt.Errorf("CRED_ENC_KEY must decode to 32 bytes (got %d)", len(cfg.CredEncKey))
	}
	return cfg, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func mustB64(k string) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil, fmt.Errorf("%s is required (base64)", k)
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
