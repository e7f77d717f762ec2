package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DirName  = ".code-llm"
	FileName = "config.toml"

	DefaultModel      = "llama3"
	DefaultAPIURL     = "http://localhost:11434"
	DefaultLogLevel   = "warn"
	DefaultMaxFileKB  = 100
	DefaultMaxTotalKB = 8000
)

// DefaultSystemPrompt asks the model for edits in the simple diff format.
const DefaultSystemPrompt = "You are a helpful assistant for software development. When suggesting changes to code:\n\n" +
	"1. ALWAYS present code edits as diff blocks with this EXACT format:\n" +
	"```diff\npath/to/file.ext\n- old line\n+ new line\n```\n\n" +
	"2. IMPORTANT RULES for code suggestions:\n" +
	"   - Include file path on the FIRST line of EACH diff block\n" +
	"   - Start a NEW diff block for EACH file you modify\n" +
	"   - Use complete paths starting from the repository root\n" +
	"   - Show '-' for lines to remove, '+' for lines to add\n" +
	"   - Include enough context lines for changes to be located\n" +
	"   - Use a SEPARATE diff block for EACH distinct change to the same file\n\n" +
	"3. For new files, use this format:\n" +
	"```diff\npath/to/newfile.ext\n+ line 1 of new file\n+ line 2 of new file\n```\n\n" +
	"4. ALWAYS show diffs for ANY code changes you suggest. Do not just describe changes. Show actual diff blocks.\n\n" +
	"5. If supplying lengthy code, break it into MULTIPLE small diff blocks rather than one huge block."

// Config is the content of ~/.code-llm/config.toml.
type Config struct {
	Model               string            `toml:"model"`
	APIURL              string            `toml:"api_url"`
	DefaultSystemPrompt string            `toml:"default_system_prompt"`
	ModelPrompts        map[string]string `toml:"model_prompts"`
	LogFile             string            `toml:"log_file"`
	LogLevel            string            `toml:"log_level"`
	ContextMaxFileKB    int               `toml:"context_max_file_kb"`
	ContextMaxTotalKB   int               `toml:"context_max_total_kb"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:               DefaultModel,
		APIURL:              DefaultAPIURL,
		DefaultSystemPrompt: DefaultSystemPrompt,
		ModelPrompts:        map[string]string{},
		LogLevel:            DefaultLogLevel,
		ContextMaxFileKB:    DefaultMaxFileKB,
		ContextMaxTotalKB:   DefaultMaxTotalKB,
	}
}

// SystemPrompt returns the prompt configured for model, or the default one.
func (c *Config) SystemPrompt(model string) string {
	if p, ok := c.ModelPrompts[model]; ok && p != "" {
		return p
	}
	return c.DefaultSystemPrompt
}

// Path returns ~/.code-llm/config.toml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, DirName, FileName), nil
}

// Load reads the configuration at path. A missing file is created with the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	if strings.TrimSpace(c.DefaultSystemPrompt) == "" {
		c.DefaultSystemPrompt = d.DefaultSystemPrompt
	}
	if c.ModelPrompts == nil {
		c.ModelPrompts = map[string]string{}
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ContextMaxFileKB == 0 {
		c.ContextMaxFileKB = d.ContextMaxFileKB
	}
	if c.ContextMaxTotalKB == 0 {
		c.ContextMaxTotalKB = d.ContextMaxTotalKB
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.ContextMaxFileKB < 0 || c.ContextMaxTotalKB < 0 {
		return errors.New("context limits must not be negative")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url %q must start with http:// or https://", c.APIURL)
	}
	return nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# code-llm configuration file")
	fmt.Fprintln(f, "")
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
