package config

// Config is the root configuration for quill.
type Config struct {
	Inference InferenceConfig `yaml:"inference,omitempty"`
	Tools     ToolsConfig     `yaml:"tools,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Mail      MailConfig      `yaml:"mail,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// InferenceConfig points at the local inference server.
type InferenceConfig struct {
	Provider    string   `yaml:"provider,omitempty"` // "ollama"
	BaseURL     string   `yaml:"baseUrl,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"maxTokens,omitempty"`
	BasePrompt  string   `yaml:"basePrompt,omitempty"`
}

// ToolsConfig controls function calling.
type ToolsConfig struct {
	Enabled        *bool `yaml:"enabled,omitempty"` // default true
	TimeoutSeconds int   `yaml:"timeoutSeconds,omitempty"`
	MaxTurns       int   `yaml:"maxTurns,omitempty"`
}

// SessionConfig defines session behavior.
type SessionConfig struct {
	ContextBudget int    `yaml:"contextBudget,omitempty"` // bytes of history per request, 0 = unlimited
	Store         string `yaml:"store,omitempty"`         // "sqlite" | "memory"
}

// MailConfig selects and configures the mailbox backend.
type MailConfig struct {
	Backend string          `yaml:"backend,omitempty"` // "imap" | "gmail" | "none"
	IMAP    MailIMAPConfig  `yaml:"imap,omitempty"`
	Gmail   MailGmailConfig `yaml:"gmail,omitempty"`
}

// MailIMAPConfig holds IMAP account credentials.
type MailIMAPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Email    string `yaml:"email,omitempty"`
	Password string `yaml:"password,omitempty"`
	Mailbox  string `yaml:"mailbox,omitempty"`
}

// MailGmailConfig points at OAuth credential files.
type MailGmailConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	TokenFile       string `yaml:"tokenFile,omitempty"`
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int              `yaml:"port,omitempty"`
	Bind           string           `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string           `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth      `yaml:"auth,omitempty"`
	TLS            GatewayTLS       `yaml:"tls,omitempty"`
	ControlUI      GatewayControlUI `yaml:"controlUi,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// GatewayControlUI configures browser access to the gateway.
type GatewayControlUI struct {
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}
