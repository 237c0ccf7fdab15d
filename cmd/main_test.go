package main

import (
	"context"
	"testing"

	"espresso_panel/internal/logger"
	"espresso_panel/internal/settings"

	"github.com/spf13/afero"
)

func TestLoadSettings_ReadOnlyDiskFallsBackToDefaults(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	store := settings.NewStore(settings.NewFileBackend(fs, "Settings.json"), logger.Nop())

	loadSettings(context.Background(), store, logger.Nop())

	for key, want := range settings.Defaults() {
		got, err := store.Get(key)
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s = %s, want %s", key, got, want)
		}
	}
}
