// Package config loads invocation configuration from YAML files. Files name
// providers, models and resilience settings; API credentials stay out of the
// file and are resolved from environment variables at load time.
package config
