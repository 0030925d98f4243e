package ask

import (
	"errors"
	"fmt"
	"strings"

	"murmur/internal/agent"
	"murmur/internal/config"
	"murmur/internal/llm"
	"murmur/internal/tools"

	"github.com/spf13/cobra"
)

var withTools bool

// Cmd asks the model a single question outside any chat.
var Cmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-off question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.LLM.APIKey == "" {
			return errors.New("llm.api_key (or OPENAI_API_KEY) is required")
		}

		var ts []agent.Tool
		if withTools {
			deps, closeTools, err := tools.FromConfig(cfg)
			if err != nil {
				return err
			}
			defer closeTools()
			ts = tools.Web(deps)
		}

		provider := llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
		answerer := agent.NewAnswerer(provider, agent.WithMaxRounds(cfg.LLM.MaxRounds))

		answer, err := answerer.Answer(cmd.Context(), strings.Join(args, " "), nil, ts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	Cmd.Flags().BoolVarP(&withTools, "tools", "t", false, "allow web page and web search tools")
}
