// Package config contains the helpers used to validate the configurations
// across the module. Validation never fails: invalid values are replaced
// by their fallback and reported as anomalies.
package config

// Config defines the minimal interface for a configuration
// in order to be validated.
type Config interface {
	// Validate checks the configuration.
	Validate(ac *AnomalyCollector)
}
