package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DirName, FileName)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `model = "qwen2.5-coder"
log_level = "debug"

[model_prompts]
"qwen2.5-coder" = "Answer with unified diffs."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder", cfg.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultMaxFileKB, cfg.ContextMaxFileKB)
	assert.Equal(t, DefaultMaxTotalKB, cfg.ContextMaxTotalKB)

	assert.Equal(t, "Answer with unified diffs.", cfg.SystemPrompt("qwen2.5-coder"))
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt("llama3"))
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("model = "), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	url := filepath.Join(dir, "url.toml")
	require.NoError(t, os.WriteFile(url, []byte(`api_url = "localhost:11434"`), 0o644))
	_, err = Load(url)
	assert.ErrorContains(t, err, "api_url")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Default()
	cfg.ModelPrompts["codellama"] = "Be brief."
	cfg.LogFile = "/tmp/code-llm.log"

	require.NoError(t, Save(cfg, path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
