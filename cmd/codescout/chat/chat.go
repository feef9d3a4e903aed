// Package chatcmder provides the chat command for asking questions about
// the indexed codebase through a running codescout server.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/codescoutco/codescout/pkg/cliui"
	"github.com/codescoutco/codescout/pkg/config"
	"github.com/codescoutco/codescout/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("codescout> ")
)

type chatCommander struct {
	question     string
	serverTarget string
	plain        bool
	debug        bool

	logger *zap.Logger
}

// chatRequest is the request body for the server's /chat endpoint.
type chatRequest struct {
	Question string `json:"question"`
}

const chatLongDesc string = `Ask questions about the indexed codebase.

Questions are answered by a running codescout server using retrieved
code chunks as context. The answer streams token by token; when stdout
is a terminal the final answer is re-rendered as markdown.

With a question argument, asks once and exits. Without one, starts an
interactive session. /exit or Ctrl+D to quit.

Examples:
  codescout chat "where is the retry logic for failed uploads?"
  codescout chat
  codescout chat --server-target http://localhost:3000`

const chatShortDesc string = "Ask questions about the indexed codebase"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
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
			if len(args) == 1 {
				cmder.question = args[0]
			}

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

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.question != "" {
		_, err := c.sendAndStream(c.question)
		fmt.Println()
		return err
	}

	fmt.Println()
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.NameStyle.Render(c.serverTarget),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if _, err := c.sendAndStream(input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendAndStream posts the question to the server and streams the answer to
// stdout as it arrives. Returns the full answer text.
func (c *chatCommander) sendAndStream(question string) (string, error) {
	body, err := json.Marshal(chatRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("server_target", c.serverTarget),
		zap.Int("question_len", len(question)),
	)

	url := c.serverTarget + "/chat"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		// LLM responses can be slow
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Print(assistantPrompt)

	full, err := StreamToStdout(resp.Body)
	if err != nil {
		return full, err
	}

	// Re-render the streamed answer as markdown on terminals. The raw
	// token stream stays above so nothing is lost if rendering fails.
	if !c.plain && term.IsTerminal(int(os.Stdout.Fd())) {
		if rendered, rerr := cliui.RenderMarkdown(full); rerr == nil {
			fmt.Print("\n")
			fmt.Print(rendered)
		}
	}

	return full, nil
}

// StreamToStdout copies a chunked text/plain token stream to stdout as each
// chunk arrives and returns the accumulated text.
func StreamToStdout(r io.Reader) (string, error) {
	var full strings.Builder
	buf := make([]byte, 4*1024)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			fmt.Print(string(buf[:n]))
			full.WriteString(string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("reading stream: %w", err)
		}
	}

	return full.String(), nil
}
