package main

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/spf13/cobra"
)

var errInconsistent = errors.New("snapshot is inconsistent")

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that registry, index and metadata agree",
		Long: `Decode every section of a snapshot and cross-check them:

  - every registry label is in the index and vice versa
  - every metadata record belongs to a registered identifier
  - the manifest counts match the decoded sections

The checksum is validated while loading. The command fails on the first
decoding error and lists all consistency problems otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := loadNamespace(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			problems := verify(st)

			out := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintln(out, "FAIL", p)
			}

			if len(problems) > 0 {
				return fmt.Errorf("%w: %d problems", errInconsistent, len(problems))
			}

			fmt.Fprintf(out, "OK %s: %d labels, %d metadata records\n", st.name, st.registry.Len(), st.overlay.Len())

			return nil
		},
	}
}

// verify returns a description of every inconsistency found in st.
func verify(st *namespaceState) []string {
	var problems []string

	registered := st.registry.Labels()
	indexed := roaring.BitmapOf(st.index.Labels()...)

	if missing := roaring.AndNot(registered, indexed); !missing.IsEmpty() {
		problems = append(problems, fmt.Sprintf("%d registered labels missing from index: %v", missing.GetCardinality(), head(missing)))
	}

	if orphans := roaring.AndNot(indexed, registered); !orphans.IsEmpty() {
		problems = append(problems, fmt.Sprintf("%d index labels without identifier: %v", orphans.GetCardinality(), head(orphans)))
	}

	if !registered.IsEmpty() && registered.Maximum() >= st.registry.Next() {
		problems = append(problems, fmt.Sprintf("label %d at or above next label %d", registered.Maximum(), st.registry.Next()))
	}

	for _, id := range st.overlay.IDs() {
		if _, ok := st.registry.LabelOf(id); !ok {
			problems = append(problems, fmt.Sprintf("metadata for unknown identifier %q", id))
		}
	}

	m := st.manifest
	if m.Count != st.index.Len() {
		problems = append(problems, fmt.Sprintf("manifest count %d, index holds %d", m.Count, st.index.Len()))
	}

	if m.NextLabel != st.registry.Next() {
		problems = append(problems, fmt.Sprintf("manifest next label %d, registry %d", m.NextLabel, st.registry.Next()))
	}

	if m.Dimension != st.index.Dimension() {
		problems = append(problems, fmt.Sprintf("manifest dimension %d, index %d", m.Dimension, st.index.Dimension()))
	}

	return problems
}

// head returns up to ten labels of bm.
func head(bm *roaring.Bitmap) []uint32 {
	out := make([]uint32, 0, 10)

	it := bm.Iterator()
	for it.HasNext() && len(out) < cap(out) {
		out = append(out, it.Next())
	}

	return out
}
