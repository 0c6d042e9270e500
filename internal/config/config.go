package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the server's runtime settings.
type Config struct {
	Port     string
	Env      string
	Entry    string
	Debounce time.Duration
	Snapshot SnapshotConfig
}

// SnapshotConfig selects and configures the tree persistence backend.
type SnapshotConfig struct {
	Backend   string // memory | file | postgres | s3
	FileDir   string
	DSN       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads flags and environment (with .env support) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	entry := strings.TrimSpace(os.Getenv("PREVIEW_ENTRY"))

	debounce := 150 * time.Millisecond
	if raw := strings.TrimSpace(os.Getenv("PREVIEW_DEBOUNCE_MS")); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			debounce = time.Duration(ms) * time.Millisecond
		}
	}

	return &Config{
		Port:     *port,
		Env:      env,
		Entry:    entry,
		Debounce: debounce,
		Snapshot: loadSnapshotConfig(env),
	}, nil
}

func loadSnapshotConfig(env string) SnapshotConfig {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SNAPSHOT_BACKEND")))
	if backend == "" {
		backend = "memory"
	}
	return SnapshotConfig{
		Backend:   backend,
		FileDir:   firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_FILE_DIR")), ".mockingbird/snapshots"),
		DSN:       strings.TrimSpace(os.Getenv("SNAPSHOT_PG_DSN")),
		Endpoint:  resolveS3Endpoint(env),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_S3_BUCKET")), "mockingbird-snapshots"),
		UseSSL:    resolveS3UseSSL(env),
	}
}

func resolveS3Endpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("SNAPSHOT_S3_ENDPOINT"))
}

func resolveS3UseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("SNAPSHOT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
