package persistence

import (
	"fmt"
	"time"

	"github.com/hupe1980/vecstore/codec"
)

// Manifest describes the namespace a snapshot belongs to. It is always
// encoded as JSON so the metadata codec can be looked up from it.
type Manifest struct {
	Namespace      string    `json:"namespace"`
	Dimension      int       `json:"dimension"`
	Metric         string    `json:"metric"`
	Capacity       int       `json:"capacity"`
	M              int       `json:"m"`
	EFConstruction int       `json:"ef_construction"`
	EF             int       `json:"ef"`
	Count          int       `json:"count"`
	NextLabel      uint32    `json:"next_label"`
	Codec          string    `json:"codec"`
	MetaFields     []string  `json:"meta_fields"`
	CreatedAt      time.Time `json:"created_at"`
}

var manifestCodec codec.Codec = codec.GoJSON{}

// EncodeManifest encodes m as a manifest section.
func EncodeManifest(m Manifest) (Section, error) {
	b, err := manifestCodec.Marshal(m)
	if err != nil {
		return Section{}, fmt.Errorf("persistence: encode manifest: %w", err)
	}

	return Section{Kind: SectionManifest, Data: b}, nil
}

// Manifest decodes the manifest section of s.
func (s *Snapshot) Manifest() (Manifest, error) {
	var m Manifest

	data, err := s.Section(SectionManifest)
	if err != nil {
		return m, err
	}

	if err := manifestCodec.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("persistence: decode manifest: %w", err)
	}

	return m, nil
}

// MetadataCodec returns the codec the metadata section was written with.
func (m Manifest) MetadataCodec() (codec.Codec, error) {
	if m.Codec == "" {
		return codec.Default, nil
	}

	return codec.Lookup(m.Codec)
}
