// Package config provides the configuration of linkscan: scan defaults,
// HTTP client settings, queue and worker settings, and report preferences.
//
// Values are layered. NewConfig sets the defaults, ApplyFile applies the
// YAML file found by FindConfigFile, ApplyEnv applies SCAN_MAX_LINKS,
// SCAN_CONCURRENCY and REDIS_URL, and CLI flags are applied last.
package config
