package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr   string          `json:"server_endpoint_addr"`
	OnlineCheckInterval  timex.Duration  `json:"online_check_interval"`
	DatabasePath         string          `json:"database_path"`
	HTTPAddr             string          `json:"http_addr"`
	LogLevel             string          `json:"log_level"`
	AutoSync             bool            `json:"auto_sync"`
	SyncInterval         timex.Duration  `json:"sync_interval"`
	ReconnectDelay       timex.Duration  `json:"reconnect_delay"`
	CallTimeout          timex.Duration  `json:"call_timeout"`
	HighPriorityEntities []models.Entity `json:"high_priority_entities"`
	DiscardOnFailure     bool            `json:"discard_on_failure"`
	S3                   JsonS3Config    `json:"s3"`
}

type JsonS3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. The DTO starts from the current values, so keys absent from
// the file leave them untouched. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	jc := JsonConfig{
		ServerEndpointAddr:   cfg.ServerEndpointAddr,
		OnlineCheckInterval:  timex.Duration{Duration: cfg.OnlineCheckInterval},
		DatabasePath:         cfg.DatabasePath,
		HTTPAddr:             cfg.HTTPAddr,
		LogLevel:             cfg.LogLevel,
		AutoSync:             cfg.AutoSync,
		SyncInterval:         timex.Duration{Duration: cfg.SyncInterval},
		ReconnectDelay:       timex.Duration{Duration: cfg.ReconnectDelay},
		CallTimeout:          timex.Duration{Duration: cfg.CallTimeout},
		HighPriorityEntities: cfg.HighPriorityEntities,
		DiscardOnFailure:     cfg.DiscardOnFailure,
		S3:                   JsonS3Config(cfg.S3),
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	cfg.DatabasePath = jc.DatabasePath
	cfg.HTTPAddr = jc.HTTPAddr
	cfg.LogLevel = jc.LogLevel
	cfg.AutoSync = jc.AutoSync
	cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	cfg.ReconnectDelay = time.Duration(jc.ReconnectDelay.Duration)
	cfg.CallTimeout = time.Duration(jc.CallTimeout.Duration)
	cfg.HighPriorityEntities = jc.HighPriorityEntities
	cfg.DiscardOnFailure = jc.DiscardOnFailure
	cfg.S3 = S3Config(jc.S3)
}
