// Package config handles loading and validating xComfort Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (XCOMFORT_*)
//   - Validation of required fields
//   - Default value handling, including the heater stale-power watchdog timings
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.ID)
package config
