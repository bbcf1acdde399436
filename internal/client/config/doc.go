// Package config loads runtime configuration for the CloudPool CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Global flags come before the command name:
//
//	cloudpool -a 127.0.0.1:50051 -token $TOKEN upload notes.txt
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "...",
//	  "refresh_token": "...",
//	  "request_timeout": "10m",
//	  "max_message_size": 1073741824
//	}
package config
