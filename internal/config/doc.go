// Package config loads the indiestream configuration.
//
// Configuration comes in two layers:
//
//   - Settings: the local client settings in ~/.config/indiestream/config.yaml
//     (identity provider, client id, reconciliation tuning, upload rules),
//     overridden by INDIESTREAM_* environment variables.
//   - RuntimeConfig: the deployment's runtime document ({"apiUrl": ...})
//     fetched once from Settings.ConfigURL, an http(s) URL or a local file.
//
// Both layers must load before the session or the catalog engine can be
// constructed. Any failure is reported as a *ConfigLoadError and is fatal
// to startup.
package config
