package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/vecstore/registry"
	"github.com/spf13/cobra"
)

func newIDsCmd(c *cli) *cobra.Command {
	var (
		limit    int
		withMeta bool
	)

	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Print the label and identifier bindings of a namespace",
		Long: `Print one "label<TAB>identifier" line per binding, in label order.

Examples:
  vecstore ids --namespace chunks --limit 20
  vecstore ids --namespace entities --meta`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := loadNamespace(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printed := 0

			st.registry.Range(func(id string, label registry.Label) bool {
				if limit > 0 && printed >= limit {
					return false
				}

				line := fmt.Sprintf("%d\t%s", label, id)

				if withMeta {
					if rec, ok := st.overlay.Get(id); ok && len(rec) > 0 {
						pairs := make([]string, 0, len(rec))
						for k, v := range rec {
							pairs = append(pairs, k+"="+v)
						}

						slices.Sort(pairs)
						line += "\t" + strings.Join(pairs, " ")
					}
				}

				fmt.Fprintln(out, line)
				printed++

				return true
			})

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of lines (0 = all)")
	cmd.Flags().BoolVar(&withMeta, "meta", false, "append the metadata record")

	return cmd
}
