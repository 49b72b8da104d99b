// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. It provides
// type-safe access to queue, LLM, image and event settings while keeping
// configuration details separate from the worker's logic.
package config
