package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-casebook/pkg/handle/osfs"
	"github.com/mattsolo1/grove-casebook/pkg/registry"
)

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb", "config.yaml")
	f := DefaultFile()
	f.Root = "/srv/cases"
	f.Watch = true
	f.S3.Bucket = "qa-cases"

	require.NoError(t, WriteFile(path, f, false))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "/srv/cases", v.GetString("root"))
	assert.True(t, v.GetBool("watch"))
	assert.Equal(t, "warn", v.GetString("log_level"))
	assert.Equal(t, 8, v.GetInt("search.concurrency"))
	assert.Equal(t, "qa-cases", v.GetString("s3.bucket"))
	assert.Equal(t, "us-east-1", v.GetString("s3.region"))
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: /keep\n"), 0644))

	err := WriteFile(path, DefaultFile(), false)
	require.Error(t, err)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "root: /keep\n", string(data))

	require.NoError(t, WriteFile(path, DefaultFile(), true))
	data, _ = os.ReadFile(path)
	assert.Contains(t, string(data), "log_level: warn")
}

func TestNewPickerUsesConfiguredRoot(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	viper.Set("root", dir)

	p, err := NewPicker(t.Context(), nil, NewLogger())
	require.NoError(t, err)
	assert.Equal(t, osfs.PathPicker{Path: dir}, p)
}

func TestNewPickerRemembersRoots(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("root", t.TempDir())

	reg, err := registry.NewRegistry(t.TempDir())
	require.NoError(t, err)
	defer reg.Close()

	p, err := NewPicker(t.Context(), reg, NewLogger())
	require.NoError(t, err)
	assert.IsType(t, &registry.RememberingPicker{}, p)
}

func TestNewPickerRequiresBucket(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		UseS3 = false
	})
	UseS3 = true

	_, err := NewPicker(t.Context(), nil, NewLogger())
	assert.ErrorContains(t, err, "s3.bucket")
}
