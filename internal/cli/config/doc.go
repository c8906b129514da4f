// Package config holds tagurl-cli settings.
//
// Settings come from ~/.tagurl/cli.yaml (or --config) and TAGURL_CLI_*
// environment variables; command-line flags override both.
package config
