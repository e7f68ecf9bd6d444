package vecstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vecstore/hnsw"
	"github.com/hupe1980/vecstore/metadata"
	"github.com/hupe1980/vecstore/persistence"
	"github.com/hupe1980/vecstore/registry"
)

// sections encodes the namespace state. The caller holds the write lock.
func (s *Store) sections() ([]persistence.Section, error) {
	opts := s.index.Options()

	manifest, err := persistence.EncodeManifest(persistence.Manifest{
		Namespace:      s.namespace,
		Dimension:      s.dimension,
		Metric:         opts.Metric.String(),
		Capacity:       opts.Capacity,
		M:              opts.M,
		EFConstruction: opts.EFConstruction,
		EF:             opts.EF,
		Count:          s.index.Len(),
		NextLabel:      s.registry.Next(),
		Codec:          s.opts.codec.Name(),
		MetaFields:     s.overlay.Fields(),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	var reg, idx, meta bytes.Buffer

	if err := s.registry.Save(&reg); err != nil {
		return nil, fmt.Errorf("vecstore: encode registry: %w", err)
	}

	if err := s.index.Save(&idx); err != nil {
		return nil, fmt.Errorf("vecstore: encode index: %w", err)
	}

	if err := s.overlay.Save(&meta, s.opts.codec); err != nil {
		return nil, fmt.Errorf("vecstore: encode metadata: %w", err)
	}

	return []persistence.Section{
		manifest,
		{Kind: persistence.SectionRegistry, Data: reg.Bytes()},
		{Kind: persistence.SectionIndex, Data: idx.Bytes()},
		{Kind: persistence.SectionMetadata, Data: meta.Bytes()},
	}, nil
}

// restore rebuilds the namespace from snap and checks that the registry and
// the index agree on every label.
func (s *Store) restore(ctx context.Context, snap *persistence.Snapshot) error {
	manifest, err := snap.Manifest()
	if err != nil {
		return err
	}

	if manifest.Dimension != s.dimension {
		return &ErrDimensionMismatch{Expected: manifest.Dimension, Actual: s.dimension}
	}

	metaCodec, err := manifest.MetadataCodec()
	if err != nil {
		return err
	}

	regData, err := snap.Section(persistence.SectionRegistry)
	if err != nil {
		return err
	}

	idxData, err := snap.Section(persistence.SectionIndex)
	if err != nil {
		return err
	}

	metaData, err := snap.Section(persistence.SectionMetadata)
	if err != nil {
		return err
	}

	reg := registry.New()
	if err := reg.Load(bytes.NewReader(regData)); err != nil {
		return err
	}

	index, err := hnsw.Load(bytes.NewReader(idxData), func(o *hnsw.Options) {
		if s.opts.efSet {
			o.EF = s.opts.ef
		}

		o.RandomSeed = s.opts.randomSeed
	})
	if err != nil {
		return err
	}

	if index.Dimension() != s.dimension {
		return &ErrDimensionMismatch{Expected: index.Dimension(), Actual: s.dimension}
	}

	fields := s.opts.metaFields
	if fields == nil {
		fields = manifest.MetaFields
	}

	overlay := metadata.New(fields)
	if err := overlay.Load(bytes.NewReader(metaData), metaCodec); err != nil {
		return err
	}

	if reg.Len() != index.Len() {
		s.logger.LogInconsistency(ctx, 0, fmt.Sprintf("registry holds %d labels, index %d", reg.Len(), index.Len()))
		return fmt.Errorf("%w: registry holds %d labels, index %d", ErrInconsistent, reg.Len(), index.Len())
	}

	var missing error

	reg.Range(func(_ string, label registry.Label) bool {
		if !index.Contains(label) {
			s.logger.LogInconsistency(ctx, label, "registry label missing from index")
			missing = fmt.Errorf("%w: label %d missing from index", ErrInconsistent, label)

			return false
		}

		return true
	})

	if missing != nil {
		return missing
	}

	s.registry = reg
	s.index = index
	s.overlay = overlay

	return nil
}
