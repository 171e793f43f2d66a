// Package config handles loading and validating homenet-bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//   - Converting the declarative YAML shape into the internal/port,
//     internal/entity and internal/automation domain types the bridge
//     actually runs against
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	supervisorCfg, err := cfg.ToSupervisorConfig()
package config
