package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/exp/ordered"
	"github.com/spf13/cobra"

	"github.com/strayline/corral/internal/agent"
	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/errs"
	"github.com/strayline/corral/internal/llm"
	"github.com/strayline/corral/internal/mcp"
	"github.com/strayline/corral/internal/present"
	"github.com/strayline/corral/internal/proto"
	"github.com/strayline/corral/internal/storage"
	"github.com/strayline/corral/internal/storage/cache"
)

func (rt *runtime) runChat(cmd *cobra.Command, args []string) error {
	cfg := &rt.cfg

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if stdin := readStdinContent(); stdin != "" {
		prompt = strings.TrimSpace(stdin + "\n\n" + prompt)
	}
	if prompt == "" {
		return errs.Error{
			Reason: "You haven't provided any prompt input.",
			Err: errs.UserErrorf(
				"You can give your prompt as arguments and/or pipe it from STDIN.\nExample: %s",
				present.StdoutStyles().InlineCode.Render("corral [prompt]"),
			),
		}
	}

	logger := newLogger(cfg)

	db, err := storage.Open(filepath.Join(cfg.CachePath, "conversations"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not open database."}
	}
	defer db.Close() //nolint:errcheck

	transcripts, err := cache.New[[]proto.Message](filepath.Join(cfg.CachePath, "transcripts"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not open the transcript cache."}
	}

	convo, past, err := resumeConversation(cfg, db, transcripts)
	if err != nil {
		return err
	}
	// A continued conversation keeps its provider and model unless the
	// flags override them.
	if convo.API != "" && !cmd.Flags().Changed("api") {
		cfg.API = convo.API
	}
	if convo.Model != "" && !cmd.Flags().Changed("model") {
		cfg.Model = convo.Model
	}

	ctx := cmd.Context()

	manager := mcp.NewManager(cfg.Servers, mcp.Options{
		ConnectTimeout: cfg.ConnectTimeout.Std(),
		HealthTimeout:  cfg.HealthTimeout.Std(),
		CallTimeout:    cfg.CallTimeout.Std(),
		Logger:         logger,
	})
	if err := manager.Initialize(ctx); err != nil {
		return errs.Error{Err: err, Reason: "Could not connect to any tool server."}
	}
	defer manager.Disconnect()

	rtm := agent.NewRuntime(cfg.Agent(), manager, modelFactory(cfg), logger)
	seedHistory(rtm.History(), past)

	answer, err := renderTurn(rtm.Respond(ctx, prompt), cfg)
	if err != nil {
		return err
	}
	rtm.Wait()

	return saveConversation(cfg, db, transcripts, convo, past, prompt, answer)
}

func modelFactory(cfg *config.Config) agent.ModelFactory {
	return func(ctx context.Context) (agent.Model, error) {
		provider, _ := cfg.Providers.Find(cfg.API)
		key, err := llm.ResolveKey(ctx, provider)
		if err != nil {
			return nil, err
		}
		if cfg.AuthToken != "" {
			key = cfg.AuthToken
		}
		mc := llm.Config{
			API:       ordered.First(provider.Name, cfg.API),
			Model:     cfg.Model,
			BaseURL:   provider.BaseURL,
			APIKey:    key,
			MaxTokens: cfg.MaxTokens,
		}
		if cfg.Temperature > 0 {
			temp := cfg.Temperature
			mc.Temperature = &temp
		}
		client, err := llm.New(mc)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// renderTurn consumes one turn's event stream. Content goes to stdout,
// reasoning and tool announcements to stderr, and the turn's terminal event
// decides the outcome.
func renderTurn(events <-chan proto.StreamResponse, cfg *config.Config) (string, error) {
	var sb strings.Builder
	// Raw and piped output stream as deltas arrive; a TTY gets the markdown
	// rendered answer in one piece at the end.
	streaming := cfg.Raw || !present.IsOutputTTY()

	for ev := range events {
		switch ev.Type {
		case proto.ResponseContent:
			sb.WriteString(ev.Content)
			if streaming {
				fmt.Print(ev.Content)
			}
		case proto.ResponseReasoning:
			if !cfg.Quiet {
				fmt.Fprint(os.Stderr, present.StderrStyles().Reasoning.Render(ev.Content))
			}
		case proto.ResponseToolCall:
			if !cfg.Quiet && ev.ToolCall != nil {
				fmt.Fprintln(
					os.Stderr,
					present.StderrStyles().Bullet.String()+present.StderrStyles().ToolCall.Render(ev.ToolCall.Name),
				)
			}
		case proto.ResponseError:
			return "", errs.Error{Err: errors.New(ev.Err), Reason: "The model could not finish this turn."}
		case proto.ResponseDone:
		}
	}

	answer := sb.String()
	if streaming {
		if answer != "" && !strings.HasSuffix(answer, "\n") {
			fmt.Println()
		}
		return answer, nil
	}

	out, err := present.RenderMarkdown(answer, cfg.WordWrap)
	if err != nil {
		out = answer
	}
	fmt.Print(out)
	return answer, nil
}

func resumeConversation(cfg *config.Config, db *storage.Store, transcripts *cache.Cache[[]proto.Message]) (storage.Conversation, []proto.Message, error) {
	var convo storage.Conversation
	var err error
	switch {
	case cfg.ContinueLast:
		convo, err = db.Latest()
		if err != nil {
			return convo, nil, errs.Error{Err: err, Reason: "There is no conversation to continue."}
		}
	case cfg.Continue != "":
		convo, err = db.Find(cfg.Continue)
		if err != nil {
			return convo, nil, errs.Error{Err: err, Reason: fmt.Sprintf("Could not find conversation %q.", cfg.Continue)}
		}
	default:
		return storage.Conversation{}, nil, nil
	}

	var messages []proto.Message
	if err := transcripts.Read(convo.ID, &messages); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return convo, nil, errs.Error{Err: err, Reason: "There was an error loading the conversation."}
	}
	return convo, messages, nil
}

// seedHistory replays a stored transcript into the runtime's exchange
// history so a continued conversation keeps its context.
func seedHistory(h *agent.History, messages []proto.Message) {
	var input, answer string
	flush := func() {
		if input != "" && answer != "" {
			h.Record(input, answer)
		}
		input, answer = "", ""
	}
	for _, m := range messages {
		switch m.Role {
		case proto.RoleUser:
			flush()
			input = m.Content
		case proto.RoleAssistant:
			if m.Content != "" {
				answer = m.Content
			}
		}
	}
	flush()
}

func saveConversation(cfg *config.Config, db *storage.Store, transcripts *cache.Cache[[]proto.Message], convo storage.Conversation, past []proto.Message, prompt, answer string) error {
	if convo.ID == "" {
		convo.ID = storage.NewConversationID()
	}
	convo.Title = ordered.First(cfg.Title, convo.Title, firstLine(prompt))
	convo.API = cfg.API
	convo.Model = cfg.Model
	convo.Processor = cfg.Processor

	messages := append(past,
		proto.Message{Role: proto.RoleUser, Content: prompt},
		proto.Message{Role: proto.RoleAssistant, Content: answer},
	)
	if err := transcripts.Write(convo.ID, messages); err != nil {
		return errs.Error{Err: err, Reason: "There was a problem writing the conversation."}
	}
	if err := db.Save(convo); err != nil {
		return errs.Error{Err: err, Reason: "There was a problem saving the conversation."}
	}

	if !cfg.Quiet {
		fmt.Fprintln(
			os.Stderr,
			"\nConversation saved:",
			present.StderrStyles().ID.Render(storage.ShortID(convo.ID)),
			present.StderrStyles().Comment.Render(convo.Title),
		)
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	const max = 80
	if len(line) > max {
		line = strings.TrimSpace(line[:max])
	}
	return line
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New(os.Stderr)
	switch {
	case cfg.Debug:
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
	case cfg.Quiet:
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}
