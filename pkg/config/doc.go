// Package config defines Sentinel's configuration model and loading.
//
// Configuration is layered, in increasing precedence:
//
//  1. Built-in defaults (ApplyDefaults)
//  2. YAML configuration file (Load)
//  3. Environment variable overrides (SENTINEL_*, plus the vendor
//     credentials ANTHROPIC_API_KEY / DAYTONA_API_KEY and the
//     compatibility variables PORT, PYTHON_BIN, DAYTONA_PRESERVE_SANDBOXES)
//
// The final configuration is validated before use; an invalid configuration
// fails startup rather than degrading at request time.
package config
