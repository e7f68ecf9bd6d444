package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const snapshotSuffix = "_hnsw.snapshot"

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the namespaces with a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openBlobStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			names, err := store.List(cmd.Context(), "")
			if err != nil {
				return err
			}

			for _, name := range names {
				if ns, ok := strings.CutSuffix(name, snapshotSuffix); ok {
					fmt.Fprintln(cmd.OutOrStdout(), ns)
				}
			}

			return nil
		},
	}
}

func newInspectCmd(c *cli) *cobra.Command {
	var graph bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a namespace snapshot",
		Long: `Print the snapshot header, the manifest and the size of every section.

Examples:
  vecstore inspect --dir ./data --namespace chunks
  vecstore inspect --namespace chunks --graph`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := loadNamespace(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			hdr := st.snapshot.Header
			m := st.manifest

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Snapshot:\t%s\n", st.name)
			fmt.Fprintf(w, "Version:\t%d\n", hdr.Version)
			fmt.Fprintf(w, "Compression:\t%s\n", hdr.Compression)
			fmt.Fprintf(w, "Payload:\t%d bytes (%d stored)\n", hdr.PayloadSize, hdr.StoredSize)
			fmt.Fprintf(w, "Checksum:\t%08x\n", hdr.Checksum)
			fmt.Fprintf(w, "Namespace:\t%s\n", m.Namespace)
			fmt.Fprintf(w, "Created:\t%s\n", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintf(w, "Dimension:\t%d\n", m.Dimension)
			fmt.Fprintf(w, "Metric:\t%s\n", m.Metric)
			fmt.Fprintf(w, "Count:\t%d of %d\n", m.Count, m.Capacity)
			fmt.Fprintf(w, "Next label:\t%d\n", m.NextLabel)
			fmt.Fprintf(w, "M / EFConstruction / EF:\t%d / %d / %d\n", m.M, m.EFConstruction, m.EF)
			fmt.Fprintf(w, "Metadata codec:\t%s\n", m.Codec)
			fmt.Fprintf(w, "Meta fields:\t%s\n", strings.Join(m.MetaFields, ", "))

			for _, kind := range st.snapshot.Kinds() {
				data, _ := st.snapshot.Section(kind)
				fmt.Fprintf(w, "Section %s:\t%d bytes\n", kind, len(data))
			}

			if err := w.Flush(); err != nil {
				return err
			}

			if graph {
				fmt.Fprintln(out)
				st.index.Stats().Print(out)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&graph, "graph", false, "also print graph level statistics")

	return cmd
}
