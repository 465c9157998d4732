package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_URL", "")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, config.DatabaseMemory, cfg.DatabaseType)
	assert.Equal(t, config.StorageMemory, cfg.Storage.Type)
}

func TestLoadConfig_ViperOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "memory")

	v := viper.New()
	v.Set("database.url", "sqlite://"+dir+"/catalog.db")
	v.Set("storage.url", "file://"+dir)
	v.Set("catalog.default_container", "shared")
	v.Set("catalog.fetch_concurrency", 3)
	v.Set("environment", "testing")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, config.DatabaseSQLite, cfg.DatabaseType)
	assert.Equal(t, dir+"/catalog.db", cfg.DatabaseURL)
	assert.Equal(t, config.StorageFS, cfg.Storage.Type)
	assert.Equal(t, dir, cfg.Storage.BaseDir)
	assert.Equal(t, "shared", cfg.DefaultContainer)
	assert.Equal(t, 3, cfg.FetchConcurrency)
	assert.Equal(t, "testing", cfg.Environment)
}

func TestLoadConfig_InvalidURL(t *testing.T) {
	v := viper.New()
	v.Set("database.url", "oracle://nowhere")

	_, err := loadConfig(v)
	assert.Error(t, err)
}
