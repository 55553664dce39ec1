// Package config loads, validates, and normalizes the pagemill TOML
// configuration. All path fields are tilde-expanded and made absolute during
// Load so the rest of the codebase never deals with relative paths.
package config
