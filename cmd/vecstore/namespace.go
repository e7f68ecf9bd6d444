package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/vecstore"
	"github.com/hupe1980/vecstore/blobstore"
	miniostore "github.com/hupe1980/vecstore/blobstore/minio"
	s3store "github.com/hupe1980/vecstore/blobstore/s3"
	"github.com/hupe1980/vecstore/hnsw"
	"github.com/hupe1980/vecstore/internal/config"
	"github.com/hupe1980/vecstore/metadata"
	"github.com/hupe1980/vecstore/persistence"
	"github.com/hupe1980/vecstore/registry"
)

// openBlobStore creates the blob store selected by cfg.
func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	sc := cfg.Store

	switch sc.Backend {
	case config.BackendS3:
		store, err := s3store.New(ctx, sc.Bucket,
			s3store.WithPrefix(sc.Prefix),
			s3store.WithRegion(sc.Region),
			s3store.WithEndpoint(sc.Endpoint),
		)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.BackendMinIO:
		store, err := miniostore.Dial(miniostore.Config{
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			Secure:    sc.Secure,
			Region:    sc.Region,
			Bucket:    sc.Bucket,
			Prefix:    sc.Prefix,
		})
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return blobstore.NewLocalStore(sc.Dir), nil
	}
}

// namespaceState is a fully decoded snapshot.
type namespaceState struct {
	name     string
	snapshot *persistence.Snapshot
	manifest persistence.Manifest
	registry *registry.Registry
	index    *hnsw.HNSW
	overlay  *metadata.Overlay
}

func loadNamespace(ctx context.Context, cfg *config.Config) (*namespaceState, error) {
	store, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	name := vecstore.SnapshotName(cfg.Namespace)

	snap, err := persistence.NewManager(store).Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	manifest, err := snap.Manifest()
	if err != nil {
		return nil, err
	}

	c, err := manifest.MetadataCodec()
	if err != nil {
		return nil, err
	}

	st := &namespaceState{
		name:     name,
		snapshot: snap,
		manifest: manifest,
		registry: registry.New(),
		overlay:  metadata.New(manifest.MetaFields),
	}

	data, err := snap.Section(persistence.SectionRegistry)
	if err != nil {
		return nil, err
	}

	if err := st.registry.Load(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	if data, err = snap.Section(persistence.SectionIndex); err != nil {
		return nil, err
	}

	if st.index, err = hnsw.Load(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	if data, err = snap.Section(persistence.SectionMetadata); err != nil {
		return nil, err
	}

	if err := st.overlay.Load(bytes.NewReader(data), c); err != nil {
		return nil, err
	}

	return st, nil
}
