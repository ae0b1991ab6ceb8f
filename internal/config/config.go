package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Inference: InferenceConfig{
			Provider: "ollama",
			BaseURL:  "http://127.0.0.1:11434",
		},
		Tools: ToolsConfig{
			TimeoutSeconds: 30,
			MaxTurns:       5,
		},
		Session: SessionConfig{
			Store: "sqlite",
		},
		Mail: MailConfig{
			Backend: "none",
		},
		Gateway: GatewayConfig{
			Port: 18990,
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
