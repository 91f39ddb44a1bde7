package config

// AuthType identifies how the agent authenticates outbound calls to the channel service.
type AuthType string

const (
	// AuthTypeUserManagedIdentity acquires tokens from a user-assigned managed identity.
	AuthTypeUserManagedIdentity AuthType = "UserManagedIdentity"
)

// Config is the process configuration. It is built once by Load and never mutated afterwards.
type Config struct {
	AuthType           AuthType `yaml:"auth_type" koanf:"-"`
	TenantID           string   `yaml:"tenant_id" koanf:"tenant_id"`
	ClientID           string   `yaml:"client_id" koanf:"client_id"`
	ConnectionName     string   `yaml:"connection_name" koanf:"connection_name"`
	AgentType          string   `yaml:"agent_type" koanf:"agent_type"`
	Port               int      `yaml:"port" koanf:"port"`
	IdentityEndpoint   string   `yaml:"identity_endpoint" koanf:"identity_endpoint"`
	OpenIDMetadata     string   `yaml:"openid_metadata" koanf:"openid_metadata"`
	StoragePath        string   `yaml:"storage_path" koanf:"storage_path"`
	Transcript         bool     `yaml:"transcript" koanf:"transcript"`
	DiagnosticCommands bool     `yaml:"diagnostic_commands" koanf:"diagnostic_commands"`
	ChatChannel        bool     `yaml:"chat_channel" koanf:"chat_channel"`
	LogLevel           string   `yaml:"log_level" koanf:"log_level"`
	LogFormat          string   `yaml:"log_format" koanf:"log_format"`
}
