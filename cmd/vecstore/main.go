// Package main implements the vecstore admin CLI for inspecting and verifying
// persisted namespace snapshots.
package main

import (
	"os"

	"github.com/hupe1980/vecstore/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the state shared by all commands.
type cli struct {
	configPath string
	cfg        *config.Config
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"namespace": "namespace",
	"backend":   "store.backend",
	"dir":       "store.dir",
	"bucket":    "store.bucket",
	"prefix":    "store.prefix",
	"region":    "store.region",
	"endpoint":  "store.endpoint",
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "vecstore",
		Short: "Inspect and verify vecstore snapshots",
		Long: `vecstore reads the snapshot a namespace was flushed to and reports on it.

Configuration is read from a YAML file (--config), then VECSTORE_* environment
variables, then flags.

Examples:
  # Summarize the "chunks" namespace in ./data
  vecstore inspect --dir ./data --namespace chunks

  # Check a snapshot in S3
  vecstore verify --backend s3 --bucket snapshots --namespace chunks`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			overrides := make(map[string]any)

			for flag, key := range flagKeys {
				f := cmd.Flags().Lookup(flag)
				if f != nil && f.Changed {
					overrides[key] = f.Value.String()
				}
			}

			cfg, err := config.Load(c.configPath, overrides)
			if err != nil {
				return err
			}

			c.cfg = cfg

			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	pf.StringP("namespace", "n", "", "namespace to operate on (default: default)")
	pf.String("backend", "", "blob store backend: local, s3 or minio (default: local)")
	pf.String("dir", "", "working directory of the local backend")
	pf.String("bucket", "", "bucket of the s3 and minio backends")
	pf.String("prefix", "", "key prefix inside the bucket")
	pf.String("region", "", "bucket region")
	pf.String("endpoint", "", "custom endpoint (required for minio)")

	root.AddCommand(
		newListCmd(c),
		newInspectCmd(c),
		newIDsCmd(c),
		newVerifyCmd(c),
	)

	return root
}
