package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	timeago "github.com/caarlos0/timea.go"
	"github.com/spf13/cobra"

	"github.com/strayline/corral/internal/config"
	"github.com/strayline/corral/internal/errs"
	"github.com/strayline/corral/internal/present"
	"github.com/strayline/corral/internal/proto"
	"github.com/strayline/corral/internal/storage"
	"github.com/strayline/corral/internal/storage/cache"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved conversations",
	}

	historyCmd.AddCommand(newHistoryListCmd(rt))
	historyCmd.AddCommand(newHistoryShowCmd(rt))
	historyCmd.AddCommand(newHistoryDeleteCmd(rt))
	historyCmd.AddCommand(newHistoryPruneCmd(rt))

	return historyCmd
}

func newHistoryListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return listConversations(&rt.cfg)
		},
	}
}

func newHistoryShowCmd(rt *runtime) *cobra.Command {
	var last bool
	showCmd := &cobra.Command{
		Use:               "show [id-or-title]",
		Short:             "Show a saved conversation",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeConversations(rt),
		RunE: func(_ *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()
			in := ""
			if len(args) == 1 {
				in = args[0]
			}
			return showConversation(&rt.cfg, in, last)
		},
	}
	showCmd.Flags().BoolVarP(&last, "last", "S", false, "Show the last saved conversation")
	return showCmd
}

func newHistoryDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id-or-title> [more...]",
		Short:             "Delete saved conversations",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeConversations(rt),
		RunE: func(_ *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return deleteConversations(&rt.cfg, args)
		},
	}
}

func newHistoryPruneCmd(rt *runtime) *cobra.Command {
	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete conversations older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			if olderThan == 0 {
				return errs.Wrap(errs.UserErrorf("missing --older-than"), "Could not delete old conversations.")
			}
			return pruneConversations(&rt.cfg, olderThan)
		},
	}
	pruneCmd.Flags().Var(newDurationFlag(olderThan, &olderThan), "older-than", "Duration to prune; e.g. 24h, 7d")
	return pruneCmd
}

func completeConversations(rt *runtime) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if rt.cfg.CachePath == "" {
			return nil, cobra.ShellCompDirectiveDefault
		}
		db, err := storage.Open(filepath.Join(rt.cfg.CachePath, "conversations"))
		if err != nil {
			return nil, cobra.ShellCompDirectiveDefault
		}
		defer db.Close() //nolint:errcheck
		return db.Completions(toComplete), cobra.ShellCompDirectiveDefault
	}
}

func listConversations(cfg *config.Config) error {
	db, err := storage.Open(filepath.Join(cfg.CachePath, "conversations"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not open database."}
	}
	defer db.Close() //nolint:errcheck

	conversations := db.List()
	if len(conversations) == 0 {
		fmt.Fprintln(os.Stderr, "No conversations found.")
		return nil
	}
	printList(conversations)
	return nil
}

func printList(conversations []storage.Conversation) {
	for _, conversation := range conversations {
		_, _ = fmt.Fprintf(
			os.Stdout,
			"%s\t%s\t%s\n",
			present.StdoutStyles().ID.Render(storage.ShortID(conversation.ID)),
			conversation.Title,
			present.StdoutStyles().Timeago.Render(timeago.Of(conversation.UpdatedAt)),
		)
	}
}

func showConversation(cfg *config.Config, in string, last bool) error {
	transcripts, err := cache.New[[]proto.Message](filepath.Join(cfg.CachePath, "transcripts"))
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error loading the conversation."}
	}
	db, err := storage.Open(filepath.Join(cfg.CachePath, "conversations"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not open database."}
	}
	defer db.Close() //nolint:errcheck

	var convo storage.Conversation
	if last || in == "" {
		convo, err = db.Latest()
	} else {
		convo, err = db.Find(in)
	}
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error loading the conversation."}
	}

	var messages []proto.Message
	if err := transcripts.Read(convo.ID, &messages); err != nil {
		return errs.Error{Err: err, Reason: "There was an error loading the conversation."}
	}

	out := proto.Conversation(messages).String()
	if present.IsOutputTTY() && !cfg.Raw {
		formatted, err := present.RenderMarkdown(out, cfg.WordWrap)
		if err == nil {
			out = formatted
		}
	}
	fmt.Print(out)
	return nil
}

func deleteConversations(cfg *config.Config, targets []string) error {
	transcripts, err := cache.New[[]proto.Message](filepath.Join(cfg.CachePath, "transcripts"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Couldn't delete conversation."}
	}
	db, err := storage.Open(filepath.Join(cfg.CachePath, "conversations"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not open database."}
	}
	defer db.Close() //nolint:errcheck

	for _, del := range targets {
		convo, err := db.Find(del)
		if err != nil {
			return errs.Error{Err: err, Reason: "Couldn't find conversation to delete."}
		}
		if err := deleteConversationByID(cfg, db, transcripts, convo.ID); err != nil {
			return err
		}
	}
	return nil
}

func pruneConversations(cfg *config.Config, olderThan time.Duration) error {
	db, err := storage.Open(filepath.Join(cfg.CachePath, "conversations"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not open database."}
	}
	defer db.Close() //nolint:errcheck

	conversations := db.ListOlderThan(olderThan)
	if len(conversations) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(os.Stderr, "No conversations found.")
		}
		return nil
	}

	if !cfg.Quiet {
		printList(conversations)
		fmt.Fprintln(os.Stderr)
		//nolint:wrapcheck // user-facing guidance error
		return errs.UserErrorf(
			"To delete the conversations above, run: %s",
			strings.Join(append(os.Args, "--quiet"), " "),
		)
	}

	transcripts, err := cache.New[[]proto.Message](filepath.Join(cfg.CachePath, "transcripts"))
	if err != nil {
		return errs.Error{Err: err, Reason: "Couldn't delete conversation."}
	}
	for _, c := range conversations {
		if err := deleteConversationByID(cfg, db, transcripts, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func deleteConversationByID(cfg *config.Config, db *storage.Store, transcripts *cache.Cache[[]proto.Message], id string) error {
	if err := transcripts.Delete(id); err != nil {
		return errs.Error{Err: err, Reason: "Couldn't delete conversation."}
	}
	if err := db.Delete(id); err != nil {
		return errs.Error{Err: err, Reason: "Couldn't delete conversation."}
	}
	if !cfg.Quiet {
		fmt.Fprintln(os.Stderr, "Deleted:", present.StderrStyles().ID.Render(storage.ShortID(id)))
	}
	return nil
}
