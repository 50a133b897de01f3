// Package config loads, normalizes, and validates lectern configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DEEPGRAM_API_KEY and OPENAI_API_KEY. Values may also come from .env files
// next to the config file or in the working directory; real environment
// variables always win over .env entries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
