package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		APIKey         string   `yaml:"apiKey"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Workspace struct {
		Root    string `yaml:"root"`
		DataDir string `yaml:"dataDir"`
	} `yaml:"workspace"`

	Analyzer struct {
		Binary string `yaml:"binary"`
	} `yaml:"analyzer"`

	Dispatcher struct {
		Workers           int `yaml:"workers"`
		JobTimeoutSeconds int `yaml:"jobTimeoutSeconds"`
	} `yaml:"dispatcher"`

	Registry struct {
		Driver string `yaml:"driver"` // file | postgres | mysql
	} `yaml:"registry"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
}

// Load baca file config.yaml. A missing file yields pure defaults so the
// server can start with zero configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if v := os.Getenv("LINTAI_SRC_CODE_ROOT"); v != "" {
		c.Workspace.Root = v
	}
	if c.Workspace.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Workspace.Root = wd
		} else {
			c.Workspace.Root = "."
		}
	}
	if c.Workspace.DataDir == "" {
		c.Workspace.DataDir = filepath.Join(os.TempDir(), "lintai-ui")
	}
	if c.Analyzer.Binary == "" {
		c.Analyzer.Binary = "lintai"
	}
	if c.Dispatcher.Workers <= 0 {
		c.Dispatcher.Workers = 4
	}
	if c.Dispatcher.JobTimeoutSeconds <= 0 {
		c.Dispatcher.JobTimeoutSeconds = 900
	}
	if c.Registry.Driver == "" {
		c.Registry.Driver = "file"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
