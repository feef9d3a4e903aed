// Package reviewcmder provides the review command for reviewing GitHub
// pull requests through a running codescout server.
package reviewcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	chatcmder "github.com/codescoutco/codescout/cmd/codescout/chat"
	"github.com/codescoutco/codescout/pkg/cliui"
	"github.com/codescoutco/codescout/pkg/config"
	"github.com/codescoutco/codescout/pkg/ghpr"
	"github.com/codescoutco/codescout/pkg/logger"
)

type reviewCommander struct {
	prURL        string
	serverTarget string
	plain        bool
	debug        bool

	logger *zap.Logger
}

// reviewRequest is the request body for the server's /review endpoint.
type reviewRequest struct {
	PRURL string `json:"prUrl"`
}

const reviewLongDesc string = `Review a GitHub pull request.

The server fetches the pull request diff, sends it to the configured
model with a structured review prompt, and streams back the findings.
Each finding names a category (Bug, Security, Performance, Suggestion),
the file and lines involved, the problem, and a suggested fix.

Examples:
  codescout review https://github.com/gofiber/fiber/pull/1234
  codescout review https://github.com/gofiber/fiber/pull/1234 --server-target http://localhost:3000`

const reviewShortDesc string = "Review a GitHub pull request"

func NewReviewCmd() *cobra.Command {
	cmder := &reviewCommander{}

	cmd := &cobra.Command{
		Use:   "review <pr-url>",
		Short: reviewShortDesc,
		Long:  reviewLongDesc,
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
			cmder.prURL = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.serverTarget, "server-target", "s", defaults.Client.ServerTarget, "Codescout server URL")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print raw tokens without markdown rendering")

	return cmd
}

func (c *reviewCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	// Fail fast on malformed URLs before involving the server.
	ref, err := ghpr.ParsePRURL(c.prURL)
	if err != nil {
		return fmt.Errorf("parsing PR URL: %w", err)
	}

	fmt.Printf("\n  %s %s/%s#%d\n\n",
		cliui.KeyStyle.Render("Reviewing:"),
		ref.Owner, ref.Repo, ref.Number,
	)

	body, err := json.Marshal(reviewRequest{PRURL: c.prURL})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending review request",
		zap.String("server_target", c.serverTarget),
		zap.String("pr_url", c.prURL),
	)

	url := c.serverTarget + "/review"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		// Cloning, diffing, and reviewing a large PR takes a while
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	full, err := chatcmder.StreamToStdout(resp.Body)
	if err != nil {
		return err
	}

	if !c.plain && term.IsTerminal(int(os.Stdout.Fd())) {
		if rendered, rerr := cliui.RenderMarkdown(full); rerr == nil {
			fmt.Print("\n")
			fmt.Print(rendered)
		}
	}

	fmt.Println()
	return nil
}
