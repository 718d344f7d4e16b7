// Package config provides configuration parsing for the dropkit server.
//
// The configuration is stored in dropkit.yaml. This package handles
// loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	dropzone:
//	  max_files: 3
//	  multiple: true
//	  enable_add_more: true
//	  error_dismiss_after: 4s
//	staging:
//	  dir: uploads/staging
//	  max_file_size: 10485760
//	  temp_expiry: 1h
//	  cleanup_interval: 5m
//	archive:
//	  dir: uploads/batches
//	session:
//	  read_timeout: 60s
//	  heartbeat_interval: 30s
//	log:
//	  level: info
//	  format: text
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Addr:", cfg.Address())
package config
