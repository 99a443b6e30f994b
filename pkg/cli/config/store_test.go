package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/cli/config"
)

func TestStore_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	var s config.Store
	parseFlags(t, s.Flags(), "--data-dir", dir)

	store, err := s.Configure(context.Background())
	gt.NoError(t, err)
	defer store.Close()

	// created at startup
	info, err := os.Stat(dir)
	gt.NoError(t, err)
	gt.Bool(t, info.IsDir()).True()
}

func TestStore_Memory(t *testing.T) {
	var s config.Store
	parseFlags(t, s.Flags(), "--store-backend", config.BackendMemory)

	store, err := s.Configure(context.Background())
	gt.NoError(t, err)
	gt.NoError(t, store.Save(context.Background(), "settings", []byte(`{}`)))
}

func TestStore_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want error
	}{
		{name: "gcs without bucket", args: []string{"--store-backend", config.BackendGCS}, want: config.ErrMissingFlag},
		{name: "firestore without project", args: []string{"--store-backend", config.BackendFirestore}, want: config.ErrMissingFlag},
		{name: "unknown backend", args: []string{"--store-backend", "redis"}, want: config.ErrUnknownBackend},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var s config.Store
			parseFlags(t, s.Flags(), tc.args...)
			_, err := s.Configure(context.Background())
			gt.Bool(t, errors.Is(err, tc.want)).True()
		})
	}
}
