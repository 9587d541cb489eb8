// Package config loads server and client settings from an optional YAML
// file and the environment. Environment variables win over the file; nested
// keys map to upper-case names joined by underscores (s3.bucket → S3_BUCKET).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type S3Config struct {
	Endpoint       string `mapstructure:"endpoint"`
	PublicEndpoint string `mapstructure:"public_endpoint"`
	Bucket         string `mapstructure:"bucket"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Region         string `mapstructure:"region"`
}

type VIAConfig struct {
	ServerURL string `mapstructure:"server_url"`
	// Model overrides the model reported by the VIA server.
	Model string `mapstructure:"model"`
}

type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type ListmonkConfig struct {
	URL        string `mapstructure:"url"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	TemplateID int    `mapstructure:"template_id"`
	Allowlist  string `mapstructure:"allowlist"`
}

type ClipsConfig struct {
	MaxAge          time.Duration `mapstructure:"max_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type Server struct {
	Port           string         `mapstructure:"port"`
	BaseURL        string         `mapstructure:"base_url"`
	DatabaseURL    string         `mapstructure:"database_url"`
	JWTSecret      string         `mapstructure:"jwt_secret"`
	MaxUploadBytes int64          `mapstructure:"max_upload_bytes"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	TrustedProxies []string       `mapstructure:"trusted_proxies"`
	FFmpegPath     string         `mapstructure:"ffmpeg_path"`
	FFprobePath    string         `mapstructure:"ffprobe_path"`
	LogLevel       string         `mapstructure:"log_level"`
	S3             S3Config       `mapstructure:"s3"`
	VIA            VIAConfig      `mapstructure:"via"`
	LLM            LLMConfig      `mapstructure:"llm"`
	Listmonk       ListmonkConfig `mapstructure:"listmonk"`
	Clips          ClipsConfig    `mapstructure:"clips"`
}

type Client struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	PrefsPath  string `mapstructure:"prefs_path"`
	LogLevel   string `mapstructure:"log_level"`
}

var (
	ErrDatabaseURLRequired = errors.New("DATABASE_URL is required")
	ErrJWTSecretRequired   = errors.New("JWT_SECRET is required")
)

func newViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// LoadServer reads the API server configuration. file may be empty.
func LoadServer(file string) (*Server, error) {
	v, err := newViper(file)
	if err != nil {
		return nil, err
	}

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	v.SetDefault("port", "8001")
	v.SetDefault("base_url", "http://localhost:8001")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("max_upload_bytes", int64(2<<30))
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("log_level", "info")

	v.SetDefault("s3.endpoint", "http://localhost:9000")
	v.SetDefault("s3.public_endpoint", "")
	v.SetDefault("s3.bucket", "vss")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.region", "us-east-1")

	v.SetDefault("via.server_url", "http://localhost:8100")
	v.SetDefault("via.model", "")

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "ollama")
	v.SetDefault("llm.model", "gemma3:27b")

	v.SetDefault("listmonk.url", "")
	v.SetDefault("listmonk.user", "admin")
	v.SetDefault("listmonk.password", "")
	v.SetDefault("listmonk.template_id", 0)
	v.SetDefault("listmonk.allowlist", "")

	v.SetDefault("clips.max_age", 24*time.Hour)
	v.SetDefault("clips.cleanup_interval", time.Hour)

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrDatabaseURLRequired
	}
	if cfg.JWTSecret == "" {
		return nil, ErrJWTSecretRequired
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &cfg, nil
}

// LoadClient reads the command-line client configuration. Environment
// variables carry a VSS_ prefix (VSS_API_BASE_URL).
func LoadClient(file string) (*Client, error) {
	v, err := newViper(file)
	if err != nil {
		return nil, err
	}
	v.SetEnvPrefix("vss")

	v.SetDefault("api_base_url", "http://localhost:8001")
	v.SetDefault("prefs_path", "")
	v.SetDefault("log_level", "warn")

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode client config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &cfg, nil
}
