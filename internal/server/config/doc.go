// Package config provides the tagurl-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - load.go: loading through internal/infra/confloader (file, env, map)
//   - verify.go: validation
//   - sanitize.go: masking secrets for logs
package config
