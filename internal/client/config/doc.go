// Package config loads runtime configuration for the fieldsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string          address:port of the record server
//	-i int             online status check interval (seconds)
//	-d string          path of the local SQLite database
//	-http string       address of the local HTTP API ("" disables it)
//	-l string          log level: debug, info, warn, error
//	-autosync bool     initial auto-sync setting (use -autosync=false)
//	-s int             initial sync interval (seconds)
//	-reconnect dur     delay before draining after reconnecting, e.g. 1s
//	-t int             per-call remote timeout (seconds)
//	-priority list     comma separated entities queued as high priority
//	-discard-failed    drop optimistic records of failed changes
//	-s3-endpoint, -s3-region, -s3-bucket, -s3-access-key, -s3-secret-key
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Keys missing from the file keep their defaults:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "fieldsync.db",
//	  "http_addr": "127.0.0.1:8088",
//	  "auto_sync": true,
//	  "sync_interval": "30s",
//	  "call_timeout": "30s",
//	  "high_priority_entities": ["time_entries"],
//	  "s3": {"endpoint": "http://127.0.0.1:9000", "bucket": "documents"}
//	}
package config
