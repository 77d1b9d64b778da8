package cli

import (
	"fmt"
	"newsdesk/internal/catalog"
	"newsdesk/internal/domain"
	"newsdesk/internal/humanize"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func (rt *runtime) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List headlines from the selected feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.list(cmd)
		},
	}
}

func (rt *runtime) list(cmd *cobra.Command) error {
	feed, stories, err := rt.fetchStories(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(stories) == 0 {
		fmt.Fprintln(out, "No stories available.")
		return nil
	}
	fmt.Fprintf(out, "# %s\n\n", feed.Name)
	now := time.Now()
	for i, s := range stories {
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, s.Title, humanize.Since(s.PubDate, now))
	}
	return nil
}

func (rt *runtime) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Print the article at index in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			story, err := rt.pickStory(cmd, args[0])
			if err != nil {
				return err
			}
			text, err := rt.app.Content().FetchArticle(cmd.Context(), story.Link, rt.opts.offline)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func (rt *runtime) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <index>",
		Short: "Open the article at index in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			story, err := rt.pickStory(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Opening: %s\n", story.Title)
			if err := rt.openURL(story.Link); err != nil {
				return err
			}
			fmt.Fprintln(out, "Launched in browser.")
			return nil
		},
	}
}

func (rt *runtime) feedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "feeds",
		Short:       "List the known feeds",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			width := lo.Max(lo.Map(catalog.Names(), func(n string, _ int) int { return len(n) }))
			for _, f := range catalog.All() {
				fmt.Fprintf(out, "%-*s  %s\n", width, f.Name, f.URL)
			}
			return nil
		},
	}
}

func (rt *runtime) cacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local cache",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached feed and article",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := rt.app.ClearCache(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the cache location and the age of the selected feed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				feed, err := rt.selectedFeed()
				if err != nil {
					return err
				}
				st := rt.app.CacheStatus(feed.URL)
				out := cmd.OutOrStdout()
				if !st.Available {
					fmt.Fprintln(out, "Cache: unavailable (network-only mode)")
					return nil
				}
				fmt.Fprintf(out, "Cache: %s\n", st.Root)
				if !st.HasFeed {
					fmt.Fprintf(out, "%s: not cached\n", feed.Name)
					return nil
				}
				state := "fresh"
				if st.FeedAge > st.FeedTTL {
					state = "stale"
				}
				fmt.Fprintf(out, "%s: cached %s ago (%s, ttl %s)\n", feed.Name, st.FeedAge, state, st.FeedTTL)
				return nil
			},
		},
	)
	return cacheCmd
}

func (rt *runtime) archiveCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List stories kept in the database archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stories, err := rt.app.Archive().RecentStories(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stories) == 0 {
				fmt.Fprintln(out, "Archive is empty.")
				return nil
			}
			for i, s := range stories {
				fmt.Fprintf(out, "%d. %s [%s] %s\n", i+1, s.Title, s.ArchivedAt.Format(time.DateTime), s.Link)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of stories to show (default from config)")
	return cmd
}

func (rt *runtime) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", rt.cfg.ServerAddress)
			return rt.app.Serve(cmd.Context())
		},
	}
}

func (rt *runtime) fetchStories(cmd *cobra.Command) (catalog.Feed, []domain.Story, error) {
	feed, err := rt.selectedFeed()
	if err != nil {
		return catalog.Feed{}, nil, err
	}
	stories, err := rt.app.Content().FetchFeed(cmd.Context(), feed.URL, rt.opts.offline)
	if err != nil {
		return feed, nil, err
	}
	return feed, stories, nil
}

// pickStory resolves a 1-based index against the current feed.
func (rt *runtime) pickStory(cmd *cobra.Command, arg string) (domain.Story, error) {
	_, stories, err := rt.fetchStories(cmd)
	if err != nil {
		return domain.Story{}, err
	}
	index, err := strconv.Atoi(arg)
	if err != nil || index < 1 || index > len(stories) {
		return domain.Story{}, fmt.Errorf("invalid article index: %s. Available: 1-%d", arg, len(stories))
	}
	return stories[index-1], nil
}
