// Package codescoutcmder
package codescoutcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/codescoutco/codescout/cmd/codescout/chat"
	configcmder "github.com/codescoutco/codescout/cmd/codescout/config"
	ingestcmder "github.com/codescoutco/codescout/cmd/codescout/ingest"
	reviewcmder "github.com/codescoutco/codescout/cmd/codescout/review"
	searchcmder "github.com/codescoutco/codescout/cmd/codescout/search"
	servecmder "github.com/codescoutco/codescout/cmd/codescout/serve"
	versioncmder "github.com/codescoutco/codescout/cmd/codescout/version"
)

const codescoutLongDesc string = `Codescout is a retrieval assistant for your codebase.

Index a repository, then ask questions or review pull requests with
answers grounded in the indexed source:
  codescout serve                Run the API and MCP server
  codescout ingest <repo-url>    Index a repository
  codescout chat                 Ask questions about the indexed code
  codescout review <pr-url>      Review a GitHub pull request`

const codescoutShortDesc string = "Codescout - Codebase Retrieval Assistant"

func NewCodescoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codescout",
		Short: codescoutShortDesc,
		Long:  codescoutLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .codescout config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(reviewcmder.NewReviewCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
