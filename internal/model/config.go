package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Provider name constants for ProviderConfig.Name.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// ConfigurationError reports an invalid or incomplete configuration.
// It is fatal: validation runs once at startup and the process refuses
// to start, never failing per-message or per-call.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %s", e.Field, e.Message)
}

// IMAPConfig holds the mailbox connection settings.
type IMAPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`

	// Username is the account address; it is also used as the From
	// address on drafted replies.
	Username string `mapstructure:"username" yaml:"username"`

	// Password may be a literal or a "keyring:KEY" reference resolved
	// through the OS keyring at startup.
	Password string `mapstructure:"password" yaml:"password"`

	TLS bool `mapstructure:"tls" yaml:"tls"`

	// Mailbox is the folder polled for new messages.
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// DraftFolders are tried in order when saving a draft; the polled
	// mailbox is the final fallback.
	DraftFolders []string `mapstructure:"draft_folders" yaml:"draft_folders"`
}

// ProviderConfig selects and tunes the model vendor used for generation.
type ProviderConfig struct {
	// Name is one of "anthropic", "openai", "gemini".
	Name string `mapstructure:"name" yaml:"name"`

	Model string `mapstructure:"model" yaml:"model"`

	// APIKey may be a literal or a "keyring:KEY" reference.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// AssistantConfig tunes the processing pipeline and context bounds.
type AssistantConfig struct {
	// SearchCriteria is the IMAP search used to find candidate
	// messages (e.g., "UNSEEN").
	SearchCriteria string `mapstructure:"search_criteria" yaml:"search_criteria"`

	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// Blacklist holds sender patterns excluded from processing;
	// matching is case-insensitive substring.
	Blacklist []string `mapstructure:"blacklist" yaml:"blacklist"`

	// SystemPrompt seeds the learning state when no state file exists.
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt"`

	// MarkAsRead controls whether processed messages are flagged seen
	// after their draft is saved.
	MarkAsRead bool `mapstructure:"mark_as_read" yaml:"mark_as_read"`

	// MarkSkippedRead flags blacklisted messages seen instead of
	// leaving them untouched.
	MarkSkippedRead bool `mapstructure:"mark_skipped_read" yaml:"mark_skipped_read"`

	// MaxExamples caps retained example responses.
	MaxExamples int `mapstructure:"max_examples" yaml:"max_examples"`

	// MaxHistory caps retained conversation turns per sender.
	MaxHistory int `mapstructure:"max_history" yaml:"max_history"`

	// MaxInstructionChars bounds the serialized instruction block.
	MaxInstructionChars int `mapstructure:"max_instruction_chars" yaml:"max_instruction_chars"`

	// MaxContextChars bounds the whole assembled context.
	MaxContextChars int `mapstructure:"max_context_chars" yaml:"max_context_chars"`

	// MaxAttempts bounds retries for retryable generation and
	// persistence failures.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// StorageConfig locates the durable state files.
type StorageConfig struct {
	// StateDir holds training_context.json and conversation_history.json.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`

	// JournalPath is the SQLite processing journal database.
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP      IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Provider  ProviderConfig  `mapstructure:"provider" yaml:"provider"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mail-assistant/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mail-assistant", "config.yaml")
}

// DefaultStateDir returns the default directory for durable state.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "mail-assistant")
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Port:    "993",
			TLS:     true,
			Mailbox: "INBOX",
			DraftFolders: []string{
				"Drafts", "Draft", "[Gmail]/Drafts", "INBOX/Drafts",
			},
		},
		Provider: ProviderConfig{
			Name:        ProviderAnthropic,
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Assistant: AssistantConfig{
			SearchCriteria:      "UNSEEN",
			PollIntervalSec:     300,
			MarkAsRead:          true,
			MaxExamples:         5,
			MaxHistory:          5,
			MaxInstructionChars: 4000,
			MaxContextChars:     24000,
			MaxAttempts:         3,
		},
		Storage: StorageConfig{
			StateDir:    DefaultStateDir(),
			JournalPath: filepath.Join(DefaultStateDir(), "journal.db"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Missing keys resolve to defaults; a missing file is an error because the
// assistant cannot run without mailbox credentials.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.draft_folders", []string{
		"Drafts", "Draft", "[Gmail]/Drafts", "INBOX/Drafts",
	})
	v.SetDefault("provider.name", ProviderAnthropic)
	v.SetDefault("provider.model", "claude-sonnet-4-20250514")
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("assistant.search_criteria", "UNSEEN")
	v.SetDefault("assistant.poll_interval_sec", 300)
	v.SetDefault("assistant.mark_as_read", true)
	v.SetDefault("assistant.max_examples", 5)
	v.SetDefault("assistant.max_history", 5)
	v.SetDefault("assistant.max_instruction_chars", 4000)
	v.SetDefault("assistant.max_context_chars", 24000)
	v.SetDefault("assistant.max_attempts", 3)
	v.SetDefault("storage.state_dir", DefaultStateDir())
	v.SetDefault("storage.journal_path", filepath.Join(DefaultStateDir(), "journal.db"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid combinations. It returns
// a *ConfigurationError describing the first problem found.
func (c *AppConfig) Validate() error {
	if c.IMAP.Host == "" {
		return &ConfigurationError{Field: "imap.host", Message: "required"}
	}
	if c.IMAP.Username == "" {
		return &ConfigurationError{Field: "imap.username", Message: "required"}
	}
	if c.IMAP.Password == "" {
		return &ConfigurationError{Field: "imap.password", Message: "required"}
	}

	switch c.Provider.Name {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
	default:
		return &ConfigurationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("unknown provider %q", c.Provider.Name),
		}
	}
	if c.Provider.APIKey == "" {
		return &ConfigurationError{
			Field:   "provider.api_key",
			Message: fmt.Sprintf("required for provider %q", c.Provider.Name),
		}
	}
	if c.Provider.Model == "" {
		return &ConfigurationError{Field: "provider.model", Message: "required"}
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return &ConfigurationError{
			Field:   "provider.temperature",
			Message: fmt.Sprintf("%v outside [0, 2]", c.Provider.Temperature),
		}
	}
	if c.Provider.MaxTokens <= 0 {
		return &ConfigurationError{
			Field:   "provider.max_tokens",
			Message: fmt.Sprintf("%d must be positive", c.Provider.MaxTokens),
		}
	}

	if c.Assistant.SearchCriteria == "" {
		return &ConfigurationError{
			Field:   "assistant.search_criteria",
			Message: "required",
		}
	}
	if c.Assistant.PollIntervalSec <= 0 {
		return &ConfigurationError{
			Field:   "assistant.poll_interval_sec",
			Message: "must be positive",
		}
	}
	if c.Assistant.MaxExamples <= 0 {
		return &ConfigurationError{
			Field:   "assistant.max_examples",
			Message: "must be positive",
		}
	}
	if c.Assistant.MaxHistory <= 0 {
		return &ConfigurationError{
			Field:   "assistant.max_history",
			Message: "must be positive",
		}
	}
	if c.Assistant.MaxContextChars <= 0 {
		return &ConfigurationError{
			Field:   "assistant.max_context_chars",
			Message: "must be positive",
		}
	}
	if c.Assistant.MaxAttempts < 1 {
		return &ConfigurationError{
			Field:   "assistant.max_attempts",
			Message: "must be at least 1",
		}
	}
	if c.Storage.StateDir == "" {
		return &ConfigurationError{Field: "storage.state_dir", Message: "required"}
	}
	if c.Storage.JournalPath == "" {
		return &ConfigurationError{Field: "storage.journal_path", Message: "required"}
	}

	return nil
}
