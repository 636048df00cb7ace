package config

// ObservabilityConfig controls OTLP trace export.
// Tracing is off by default; set observability.enabled to true and point
// otlp_endpoint at a collector to turn it on.
type ObservabilityConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}
