package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/flagx"
)

var knownFlags = []string{
	"-a", "-i", "-d", "-http", "-l",
	"-autosync", "-s", "-reconnect", "-t", "-priority", "-discard-failed",
	"-s3-endpoint", "-s3-region", "-s3-bucket", "-s3-access-key", "-s3-secret-key",
}

// parseFlags populates Config fields from command-line flags. Only the flags
// listed in knownFlags are considered; parse errors panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "local HTTP API address, empty to disable")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	fs.BoolVar(&cfg.AutoSync, "autosync", cfg.AutoSync, "sync automatically while online")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "auto-sync interval (in seconds)")
	fs.DurationVar(&cfg.ReconnectDelay, "reconnect", cfg.ReconnectDelay, "delay before syncing after reconnect")
	callTimeout := fs.Int("t", int(cfg.CallTimeout.Seconds()), "remote call timeout (in seconds)")
	priority := fs.String("priority", joinEntities(cfg.HighPriorityEntities), "comma separated high priority entities")
	fs.BoolVar(&cfg.DiscardOnFailure, "discard-failed", cfg.DiscardOnFailure, "drop optimistic records of failed changes")

	fs.StringVar(&cfg.S3.Endpoint, "s3-endpoint", cfg.S3.Endpoint, "S3 endpoint URL")
	fs.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "S3 region")
	fs.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "S3 bucket for documents")
	fs.StringVar(&cfg.S3.AccessKey, "s3-access-key", cfg.S3.AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3.SecretKey, "s3-secret-key", cfg.S3.SecretKey, "S3 secret key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.CallTimeout = time.Duration(*callTimeout) * time.Second
	cfg.HighPriorityEntities = splitEntities(*priority)
}

func joinEntities(entities []models.Entity) string {
	parts := make([]string, len(entities))
	for i, e := range entities {
		parts[i] = string(e)
	}
	return strings.Join(parts, ",")
}

func splitEntities(s string) []models.Entity {
	var out []models.Entity
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, models.Entity(p))
		}
	}
	return out
}
