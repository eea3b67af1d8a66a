package configuration

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Server        ServerConfig
	NATSURL       string
	ClamAVURL     string
	OIDCIssuerURL string
	Scanner       string // "simulated" or "clamav"
	PublicBaseURL string
	LogLevel      string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
}

type ServerConfig struct {
	Port string
}

// Load reads configuration from the environment with development defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "docuser")
	v.SetDefault("DB_PASSWORD", "docpassword")
	v.SetDefault("DB_NAME", "documents")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "documents")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("CLAMAV_URL", "tcp://localhost:3310")
	v.SetDefault("OIDC_ISSUER_URL", "http://localhost:8081/realms/docuvault")
	v.SetDefault("SCANNER", "simulated")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		MinIO: MinIOConfig{
			Endpoint:   v.GetString("MINIO_ENDPOINT"),
			AccessKey:  v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:  v.GetString("MINIO_SECRET_KEY"),
			BucketName: v.GetString("MINIO_BUCKET"),
			UseSSL:     v.GetBool("MINIO_USE_SSL"),
		},
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		NATSURL:       v.GetString("NATS_URL"),
		ClamAVURL:     v.GetString("CLAMAV_URL"),
		OIDCIssuerURL: v.GetString("OIDC_ISSUER_URL"),
		Scanner:       v.GetString("SCANNER"),
		PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}
