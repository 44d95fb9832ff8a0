package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
log_level: "debug"
interval_sec: 60
pages:
  - repo: "https://git.example.com/docs.git"
    ref: "main"
    subfolder: "site"
    prefix: "/docs/"
    auto_list: true
    update_secret: "s3cret"
    max_bytes: 1048576
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.Interval())

	require.Len(t, cfg.Pages, 1)
	p := cfg.Pages[0]
	assert.Equal(t, "https://git.example.com/docs.git", p.Repo)
	assert.Equal(t, "main", p.Ref)
	assert.Equal(t, "site", p.Subfolder)
	assert.Equal(t, "/docs/", p.Prefix)
	assert.True(t, p.AutoIndex, "auto_index defaults to true")
	assert.True(t, p.AutoList)
	assert.Equal(t, "s3cret", p.UpdateSecret)
	assert.Equal(t, int64(1048576), p.MaxBytes)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
pages:
  - repo: "https://git.example.com/repo.git"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./temp", cfg.TempDir)
	assert.Equal(t, 300*time.Second, cfg.Interval())
	assert.Equal(t, 120*time.Second, cfg.UpdateTimeout())

	require.Len(t, cfg.Pages, 1)
	assert.Equal(t, "/", cfg.Pages[0].Prefix)
	assert.True(t, cfg.Pages[0].AutoIndex)
	assert.False(t, cfg.Pages[0].AutoList)
}

func TestLoadAutoIndexDisabled(t *testing.T) {
	path := writeConfig(t, `
pages:
  - repo: "https://git.example.com/repo.git"
    auto_index: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Pages[0].AutoIndex)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("GITPAGES_TEST_SECRET", "from-env")

	path := writeConfig(t, `
pages:
  - repo: "https://git.example.com/repo.git"
    update_secret: "$GITPAGES_TEST_SECRET"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Pages[0].UpdateSecret)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no pages",
			content: `listen: ":8080"`,
			wantErr: "at least one page",
		},
		{
			name: "missing repo",
			content: `
pages:
  - prefix: "/docs/"
`,
			wantErr: "repo is required",
		},
		{
			name: "prefix without leading slash",
			content: `
pages:
  - repo: "https://git.example.com/a.git"
    prefix: "docs/"
`,
			wantErr: "must start with a slash",
		},
		{
			name: "prefix without trailing slash",
			content: `
pages:
  - repo: "https://git.example.com/a.git"
    prefix: "/docs"
`,
			wantErr: "must end with a slash",
		},
		{
			name: "duplicate prefix",
			content: `
pages:
  - repo: "https://git.example.com/a.git"
    prefix: "/docs/"
  - repo: "https://git.example.com/b.git"
    prefix: "/docs/"
`,
			wantErr: "used by more than one page",
		},
		{
			name: "nested prefix",
			content: `
pages:
  - repo: "https://git.example.com/a.git"
    prefix: "/docs/"
  - repo: "https://git.example.com/b.git"
    prefix: "/docs/api/"
`,
			wantErr: "conflicts with",
		},
		{
			name: "negative max_bytes",
			content: `
pages:
  - repo: "https://git.example.com/a.git"
    max_bytes: -1
`,
			wantErr: "max_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkdirName(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"/", "root"},
		{"/docs/", "docs"},
		{"/docs/api/", "docs_api"},
	}
	for _, tt := range tests {
		p := PageConfig{Prefix: tt.prefix}
		assert.Equal(t, tt.want, p.WorkdirName())
	}
}
