// Package config loads runtime configuration for the Willnicht client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "evaluator_url": "https://hook.example.com/abc",
//	  "data_dir": ".willnicht",
//	  "cache_file": "willnicht.db",
//	  "remote_timeout": "10s",
//	  "evaluator_timeout": "60s",
//	  "evaluator_rate": 1,
//	  "online_check_interval": "3s",
//	  "remote_enabled": true,
//	  "page_size": 50,
//	  "user_email": "user@example.com",
//	  "user_language": "Russian",
//	  "marketplace_language": "German",
//	  "source_url": "https://www.willnicht.com/app#form1",
//	  "log_level": "warn"
//	}
//
// Environment variables are not read.
package config
