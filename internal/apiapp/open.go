package apiapp

import (
	"context"
	"fmt"

	"github.com/dme-bo/briskolive/internal/blob"
	blobfs "github.com/dme-bo/briskolive/internal/blob/fs"
	blobs3 "github.com/dme-bo/briskolive/internal/blob/s3"
	"github.com/dme-bo/briskolive/internal/store"
	"github.com/dme-bo/briskolive/internal/store/memory"
	"github.com/dme-bo/briskolive/internal/store/mongo"
	"github.com/dme-bo/briskolive/internal/store/postgres"
	"github.com/dme-bo/briskolive/internal/store/sqlite"
)

// OpenStore selects the document store backend named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.New(), nil
	case "", "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	case "postgres":
		return postgres.Open(ctx, cfg.PostgresDSN)
	case "mongo":
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (memory, sqlite, postgres, mongo)", cfg.StoreDriver)
	}
}

// OpenArchive returns nil when archiving is off.
func OpenArchive(ctx context.Context, cfg Config) (blob.Store, error) {
	switch blob.Driver(cfg.ArchiveDriver) {
	case "", "none":
		return nil, nil
	case blob.DriverFilesystem:
		return blobfs.New(cfg.ArchiveDir)
	case blob.DriverS3:
		return blobs3.New(ctx, cfg.ArchiveS3)
	default:
		return nil, fmt.Errorf("unknown ARCHIVE_DRIVER %q (fs, s3)", cfg.ArchiveDriver)
	}
}
