// Package searchcmder provides the search command for semantic search over
// indexed code.
package searchcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apisearch "github.com/codescoutco/codescout/api/search"
	"github.com/codescoutco/codescout/pkg/config"
	"github.com/codescoutco/codescout/pkg/logger"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	lineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	serverTarget string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search indexed code via the codescout server.

Returns the closest indexed code chunks for the query text. Requires a
running codescout server with an indexed codebase.

Use --quiet to output only file paths with line ranges, one per line.
This is useful for piping into editors or other tools.

Examples:
  codescout search "where do we retry failed uploads"
  codescout search "jwt validation" --top 10
  codescout search "rate limiting" --quiet`

const searchShortDesc string = "Search indexed code"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("server-target") {
				cmder.serverTarget = cfg.Client.ServerTarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only file:start-end locations, one per line")
	cmd.Flags().StringVarP(&cmder.serverTarget, "server-target", "s", defaults.Client.ServerTarget, "Codescout server URL")

	return cmd
}

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	output, err := SearchAPI(c.serverTarget, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Printf("%s:%d-%d\n", result.FilePath, result.StartLine, result.EndLine)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search results for:"),
		pathStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		fmt.Printf("%s %s %s\n",
			rankStyle.Render(fmt.Sprintf("%d.", i+1)),
			pathStyle.Render(result.FilePath),
			lineStyle.Render(fmt.Sprintf("lines %d-%d", result.StartLine, result.EndLine)),
		)
		fmt.Printf("   %s\n\n", previewStyle.Render(result.Preview))
	}

	fmt.Printf("%s\n", dimStyle.Render(fmt.Sprintf("%d results", output.Count)))
	return nil
}

// SearchAPI posts a search query to a codescout server and decodes the
// response.
func SearchAPI(serverTarget, query string, topK int) (*apisearch.SearchOutput, error) {
	body, err := json.Marshal(apisearch.SearchInput{
		Query: query,
		TopK:  topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := serverTarget + "/search"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var output apisearch.SearchOutput
	if err := json.NewDecoder(resp.Body).Decode(&output); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &output, nil
}
