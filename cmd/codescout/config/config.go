// Package configcmder provides the config command for managing persistent
// codescout configuration stored in the .codescout/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent codescout configuration.

Configuration is stored as config.toml in the .codescout/ directory and
provides default values for command flags. CLI flags and CODESCOUT_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, client.server_target,
  storage.repos_dir, storage.uploads_dir, storage.sqlite_path,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model,
  ingest.chunk_size, ingest.concurrency, review.max_context_bytes,
  github.token, events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  codescout config set <key> <value>    Set a configuration value
  codescout config get <key>            Get a configuration value
  codescout config list                 List all configuration values

Examples:
  codescout config set llm.model llama3.2
  codescout config set embedding.model nomic-embed-text
  codescout config get vector_store.target
  codescout config list`

const configShortDesc string = "Manage persistent codescout configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
