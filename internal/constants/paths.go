package constants

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// MetricsNamespace prefixes every exported prometheus metric.
const MetricsNamespace = "hostkeeper"
