// Package config provides configuration loading for CueGrid Core.
//
// Configuration is loaded from a YAML file with hardcoded defaults applied
// first, then file values, then CUEGRID_* environment variable overrides.
// The loaded configuration is validated before use; an invalid configuration
// aborts startup rather than running with surprising values.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	log := logging.New(cfg.Logging, version)
package config
