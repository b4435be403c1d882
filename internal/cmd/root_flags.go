package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/present"
	"github.com/strayline/corral/internal/storage"
)

var helpText = map[string]string{
	"api":            "OpenAI compatible REST API (openai, anthropic, google, openrouter, ...).",
	"model":          "Model to pass to the API.",
	"processor":      "Reasoning loop to drive tool use (react, coact).",
	"system":         "System prompt prepended to every conversation.",
	"continue":       "Continue from the last response or a given title or ID.",
	"continue-last":  "Continue from the last response.",
	"title":          "Saves the current conversation with the given title.",
	"raw":            "Render raw response text without markdown formatting.",
	"quiet":          "Only output the final answer, no reasoning or tool chatter.",
	"max-tokens":     "Maximum number of tokens in the answer.",
	"temp":           "Sampling temperature.",
	"max-iterations": "Maximum reasoning iterations per turn.",
	"history-window": "Number of past exchanges replayed into each turn.",
	"word-wrap":      "Wrap formatted output at a specific width (default is 80).",
	"debug":          "Log debug information to stderr.",
}

func initRootFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	desc := func(name string) string {
		return present.StdoutStyles().FlagDesc.Render(helpText[name])
	}
	flags.StringVarP(&cfg.API, "api", "a", cfg.API, desc("api"))
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, desc("model"))
	flags.StringVar(&cfg.Processor, "processor", cfg.Processor, desc("processor"))
	flags.StringVarP(&cfg.System, "system", "s", cfg.System, desc("system"))
	flags.StringVarP(&cfg.Continue, "continue", "c", "", desc("continue"))
	flags.BoolVarP(&cfg.ContinueLast, "continue-last", "C", false, desc("continue-last"))
	flags.StringVarP(&cfg.Title, "title", "t", cfg.Title, desc("title"))
	flags.BoolVarP(&cfg.Raw, "raw", "r", cfg.Raw, desc("raw"))
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, desc("quiet"))
	flags.Int64Var(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, desc("max-tokens"))
	flags.Float64Var(&cfg.Temperature, "temp", cfg.Temperature, desc("temp"))
	flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, desc("max-iterations"))
	flags.IntVar(&cfg.HistoryWindow, "history-window", cfg.HistoryWindow, desc("history-window"))
	flags.IntVar(&cfg.WordWrap, "word-wrap", cfg.WordWrap, desc("word-wrap"))
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, desc("debug"))
	flags.SortFlags = false

	// Shell completions for continued conversation IDs. Open DB lazily.
	_ = cmd.RegisterFlagCompletionFunc("continue", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if cfg.CachePath == "" {
			return nil, cobra.ShellCompDirectiveDefault
		}
		db, err := storage.Open(filepath.Join(cfg.CachePath, "conversations"))
		if err != nil {
			return nil, cobra.ShellCompDirectiveDefault
		}
		defer db.Close() //nolint:errcheck
		return db.Completions(toComplete), cobra.ShellCompDirectiveDefault
	})

	cmd.MarkFlagsMutuallyExclusive("continue", "continue-last")
}
