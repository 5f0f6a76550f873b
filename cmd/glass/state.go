package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/glass/internal/appconfig"
	"pkt.systems/glass/internal/command"
	"pkt.systems/glass/internal/history"
	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

func newHistoryCmd() *cobra.Command {
	var cfgPath string
	var limit int
	cmd := &cobra.Command{
		Use:   "history <query>",
		Short: "Search the saved browsing history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			store, err := persist.NewStoreWithLogger(cfg.StateDir, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			var entries []schema.HistoryEntry
			if _, err := store.Get(persist.KeyHistory, &entries); err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.History.MaxResults
			}
			matches := history.Rank(entries, strings.Join(args, " "), limit, time.Now(), nil)
			return writeMatches(cmd.OutOrStdout(), matches)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (defaults to history.max_results)")
	return cmd
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the saved session",
	}
	cmd.AddCommand(newSessionShowCmd())
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the tabs that will be restored on the next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			store, err := persist.NewStoreWithLogger(cfg.StateDir, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			var session schema.SessionSnapshot
			ok, err := store.Get(persist.KeyTabs, &session)
			if err != nil {
				return err
			}
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no saved session")
				return err
			}
			return writeSession(cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func newBookmarksCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List the saved bookmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			store, err := persist.NewStoreWithLogger(cfg.StateDir, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			var snapshot schema.BookmarkSnapshot
			if _, err := store.Get(persist.KeyBookmarks, &snapshot); err != nil {
				return err
			}
			return writeBookmarks(cmd.OutOrStdout(), snapshot)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func writeBookmarks(out io.Writer, snapshot schema.BookmarkSnapshot) error {
	for _, line := range command.FormatBookmarks(snapshot) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func writeMatches(out io.Writer, matches []schema.HistoryMatch) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(out, "no matches")
		return err
	}
	for i, m := range matches {
		title := m.Title
		if title == "" {
			title = m.URL
		}
		if _, err := fmt.Fprintf(out, "%2d. %s\n    %s\n", i+1, title, m.URL); err != nil {
			return err
		}
	}
	return nil
}

func writeSession(out io.Writer, session schema.SessionSnapshot) error {
	if len(session.Tabs) == 0 {
		_, err := fmt.Fprintln(out, "no saved session")
		return err
	}
	for i, tab := range session.Tabs {
		marker := " "
		if i == session.ActiveIndex {
			marker = "*"
		}
		title := tab.Title
		if title == "" {
			title = tab.URL
		}
		pinned := ""
		if tab.IsPinned {
			pinned = " [pinned]"
		}
		if _, err := fmt.Fprintf(out, "%s %d %s (%s)%s\n", marker, i+1, title, tab.URL, pinned); err != nil {
			return err
		}
	}
	return nil
}
