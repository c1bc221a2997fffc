package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/webnav-ai/webnav/internal/agent"
	"github.com/webnav-ai/webnav/internal/config"
	"github.com/webnav-ai/webnav/internal/llm"
	"github.com/webnav-ai/webnav/internal/transport"
)

func newRunCmd() *cobra.Command {
	var jsonOutput bool
	var headed bool
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run <url> <task>",
		Short: "Drive the agent loop end to end and print the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd)
			cfg := config.Load()
			if cmd.Flags().Changed("headed") {
				cfg.Headless = !headed
			}
			if maxSteps > 0 {
				cfg.MaxSteps = maxSteps
			}

			client, err := newModelClient(cfg, log)
			if err != nil {
				return err
			}

			browser := transport.New(log)
			if err := browser.Launch(transport.LaunchOptions{
				Headless:    cfg.Headless,
				UserDataDir: cfg.UserDataDir,
			}); err != nil {
				return err
			}

			loop := agent.New(browser, client, log, cfg.MaxSteps)
			result, err := loop.Run(browser.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Println(result.Result)
			fmt.Printf("\n%d steps, %d model calls, %d input tokens, %d output tokens\n",
				len(result.Steps), result.Usage.ModelCalls, result.Usage.InputTokens, result.Usage.OutputTokens)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result and step log as JSON")
	cmd.Flags().BoolVar(&headed, "headed", false, "show the browser window")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "override WEBNAV_MAX_STEPS for this run")
	return cmd
}

// newModelClient builds the provider selected by cfg.ModelProvider,
// mirroring llm.NewFromEnv's switch but honoring config.Config's already
// parsed value rather than re-reading the environment variable.
func newModelClient(cfg config.Config, log zerolog.Logger) (llm.Client, error) {
	switch cfg.ModelProvider {
	case "openai":
		return llm.NewOpenAIFromEnv(log)
	case "anthropic", "":
		return llm.NewAnthropicFromEnv(log)
	default:
		return nil, fmt.Errorf("unknown model provider: %s (use 'anthropic' or 'openai')", cfg.ModelProvider)
	}
}
