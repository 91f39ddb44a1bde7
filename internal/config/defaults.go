package config

import "fmt"

const (
	DefaultAgentType = "TeamsHandler"
	DefaultPort      = 3978

	// DefaultIdentityEndpoint is the Azure instance metadata token endpoint.
	DefaultIdentityEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

	// DefaultOpenIDMetadata publishes the keys that sign inbound channel service tokens.
	DefaultOpenIDMetadata = "https://login.botframework.com/v1/.well-known/openidconfiguration"
)

// envKeys maps each recognized environment variable to its config key.
// Variables not listed here are ignored.
var envKeys = map[string]string{
	"TENANT_ID":           "tenant_id",
	"CLIENT_ID":           "client_id",
	"CONNECTION_NAME":     "connection_name",
	"AGENT_TYPE":          "agent_type",
	"PORT":                "port",
	"IDENTITY_ENDPOINT":   "identity_endpoint",
	"OPENID_METADATA":     "openid_metadata",
	"STORAGE_PATH":        "storage_path",
	"TRANSCRIPT":          "transcript",
	"DIAGNOSTIC_COMMANDS": "diagnostic_commands",
	"CHAT_CHANNEL":        "chat_channel",
	"LOG_LEVEL":           "log_level",
	"LOG_FORMAT":          "log_format",
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		AuthType:         AuthTypeUserManagedIdentity,
		AgentType:        DefaultAgentType,
		Port:             DefaultPort,
		IdentityEndpoint: DefaultIdentityEndpoint,
		OpenIDMetadata:   DefaultOpenIDMetadata,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
