package internal

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"), false)
	require.NoError(t, err)

	assert.Equal(t, "./scrubbed", c.OutputDir)
	assert.Equal(t, runtime.NumCPU(), c.Workers)
	require.NotNil(t, c.KeepNames)
	assert.True(t, *c.KeepNames)
	assert.False(t, c.Lenient)
	assert.Equal(t, 30*time.Second, c.Watch.Interval)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, int64(64<<20), c.Server.MaxBodyBytes)
}

func TestDefaultConfig(t *testing.T) {
	loaded, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"), false)
	require.NoError(t, err)

	// command line flags advertise these, so they must match what loading yields
	assert.Equal(t, loaded, DefaultConfig())
	assert.Empty(t, DefaultConfig().FilterOptions())

	lenient := DefaultConfig()
	lenient.Lenient = true
	assert.Len(t, lenient.FilterOptions(), 1)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"), true)
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "png-scrubber.yml", []byte(`
output-dir: /srv/clean
workers: 2
keep-names: false
lenient: true
watch:
  inbox: /srv/inbox
  interval: 5m
server:
  port: 9090
`))

	c, err := LoadConfig(path, true)
	require.NoError(t, err)

	assert.Equal(t, "/srv/clean", c.OutputDir)
	assert.Equal(t, 2, c.Workers)
	assert.False(t, *c.KeepNames)
	assert.True(t, c.Lenient)
	assert.Equal(t, "/srv/inbox", c.Watch.Inbox)
	assert.Equal(t, 5*time.Minute, c.Watch.Interval)
	assert.Equal(t, 9090, c.Server.Port)

	opts := c.Options()
	assert.Equal(t, Options{OutputDir: "/srv/clean", Workers: 2, KeepNames: false, Lenient: true}, opts)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "png-scrubber.yml", []byte("output-dir: /from/file\nworkers: 2\n"))
	t.Setenv("PNG_SCRUBBER_OUTPUT_DIR", "/from/env")
	t.Setenv("PNG_SCRUBBER_WORKERS", "7")
	t.Setenv("PORT", "3000")

	c, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", c.OutputDir)
	assert.Equal(t, 7, c.Workers)
	assert.Equal(t, 3000, c.Server.Port)
}

func TestLoadConfig_BadInput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "png-scrubber.yml", []byte("workers: [not, a, number]\n"))
	_, err := LoadConfig(path, true)
	assert.ErrorContains(t, err, "failed to parse config")

	t.Setenv("PNG_SCRUBBER_WORKERS", "many")
	_, err = LoadConfig("", false)
	assert.ErrorContains(t, err, "PNG_SCRUBBER_WORKERS")
}

func TestRelevantEnv(t *testing.T) {
	vars := relevantEnv([]string{
		"PNG_SCRUBBER_WORKERS=4",
		"HOME=/root",
		"PNG_SCRUBBER_API_KEY=hunter2",
		"PNG_SCRUBBER_INBOX=/srv/inbox",
	})
	assert.Equal(t, [][2]string{
		{"PNG_SCRUBBER_API_KEY", "********"},
		{"PNG_SCRUBBER_INBOX", "/srv/inbox"},
		{"PNG_SCRUBBER_WORKERS", "4"},
	}, vars)
}
