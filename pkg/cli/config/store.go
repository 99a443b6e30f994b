package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/repository/file"
	"github.com/secmon-lab/tradescout/pkg/repository/firestore"
	"github.com/secmon-lab/tradescout/pkg/repository/gcs"
	"github.com/secmon-lab/tradescout/pkg/repository/memory"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const (
	BackendFile      = "file"
	BackendGCS       = "gcs"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Store holds CLI flags for the snapshot store backend
type Store struct {
	backend          string
	dataDir          string
	bucket           string
	prefix           string
	projectID        string
	databaseID       string
	collectionPrefix string
}

// Flags returns CLI flags for store configuration
func (s *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store-backend",
			Usage:       "Snapshot store backend [file|gcs|firestore|memory]",
			Category:    "Store",
			Value:       BackendFile,
			Sources:     cli.EnvVars("TRADESCOUT_STORE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory of the file backend (created when missing)",
			Category:    "Store",
			Value:       "data",
			Sources:     cli.EnvVars("TRADESCOUT_DATA_DIR"),
			Destination: &s.dataDir,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket (required when using gcs backend)",
			Category:    "Store",
			Sources:     cli.EnvVars("TRADESCOUT_GCS_BUCKET"),
			Destination: &s.bucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the bucket",
			Category:    "Store",
			Sources:     cli.EnvVars("TRADESCOUT_GCS_PREFIX"),
			Destination: &s.prefix,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Store",
			Sources:     cli.EnvVars("TRADESCOUT_FIRESTORE_PROJECT_ID"),
			Destination: &s.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Store",
			Sources:     cli.EnvVars("TRADESCOUT_FIRESTORE_DATABASE_ID"),
			Destination: &s.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of the Firestore snapshot collection",
			Category:    "Store",
			Sources:     cli.EnvVars("TRADESCOUT_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &s.collectionPrefix,
		},
	}
}

func (s Store) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("backend", s.backend)}
	switch s.backend {
	case BackendFile:
		attrs = append(attrs, slog.String("data_dir", s.dataDir))
	case BackendGCS:
		attrs = append(attrs, slog.String("bucket", s.bucket), slog.String("prefix", s.prefix))
	case BackendFirestore:
		attrs = append(attrs, slog.String("project_id", s.projectID), slog.String("database_id", s.databaseID))
	}
	return slog.GroupValue(attrs...)
}

// Configure opens the configured store. The caller is responsible for calling
// Close() on it.
func (s *Store) Configure(ctx context.Context) (interfaces.SnapshotStore, error) {
	switch s.backend {
	case BackendFile:
		store, err := file.New(s.dataDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize file store")
		}
		logging.Default().Info("Using file store", "data_dir", s.dataDir)
		return store, nil

	case BackendGCS:
		if s.bucket == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "gcs-bucket is required when using gcs backend", goerr.V(FlagKey, "gcs-bucket"))
		}
		store, err := gcs.New(ctx, s.bucket, gcs.WithPrefix(s.prefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize gcs store")
		}
		logging.Default().Info("Using Cloud Storage store", "bucket", s.bucket, "prefix", s.prefix)
		return store, nil

	case BackendFirestore:
		if s.projectID == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "firestore-project-id is required when using firestore backend", goerr.V(FlagKey, "firestore-project-id"))
		}
		opts := []firestore.Option{firestore.WithCollectionPrefix(s.collectionPrefix)}
		if s.databaseID != "" {
			opts = append(opts, firestore.WithDatabaseID(s.databaseID))
		}
		store, err := firestore.New(ctx, s.projectID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore store")
		}
		logging.Default().Info("Using Firestore store",
			"project_id", s.projectID,
			"database_id", s.databaseID,
		)
		return store, nil

	case BackendMemory:
		logging.Default().Warn("Using in-memory store, ledgers are lost on exit")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid store backend", goerr.V(BackendKey, s.backend))
	}
}
