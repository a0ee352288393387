package config

import (
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Config holds runtime settings for the fieldsync client.
//
// AutoSync and SyncInterval only seed the persisted sync settings: once the
// user changes them, the stored values win.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration

	DatabasePath string
	HTTPAddr     string
	LogLevel     string

	AutoSync             bool
	SyncInterval         time.Duration
	ReconnectDelay       time.Duration
	CallTimeout          time.Duration
	HighPriorityEntities []models.Entity
	DiscardOnFailure     bool

	S3 S3Config
}

// S3Config locates the bucket holding documents. An empty Bucket disables
// the documents collaborator.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "fieldsync.db"
	c.HTTPAddr = "127.0.0.1:8088"
	c.LogLevel = "info"
	c.AutoSync = true
	c.SyncInterval = 30 * time.Second
	c.ReconnectDelay = time.Second
	c.CallTimeout = 30 * time.Second
	c.HighPriorityEntities = []models.Entity{models.EntityTimeEntries}
	c.DiscardOnFailure = false
	c.S3 = S3Config{Region: "us-east-1"}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
