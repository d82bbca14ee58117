package main

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"recs/internal/bootstrap"
	"recs/internal/models"
	"recs/internal/observability"
	"recs/internal/service"

	"github.com/spf13/cobra"
)

// cli holds the state shared by every command of one invocation.
type cli struct {
	out  io.Writer
	open func(ctx context.Context) (*bootstrap.Runtime, error)
	now  func() time.Time

	output string
	render *renderer
	rt     *bootstrap.Runtime
}

// runtime opens the client core on first use so help and flag errors never
// touch config or the network.
func (c *cli) runtime(ctx context.Context) (*bootstrap.Runtime, error) {
	if c.rt != nil {
		return c.rt, nil
	}
	rt, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	c.rt = rt
	return rt, nil
}

func (c *cli) close(ctx context.Context) error {
	if c.rt == nil {
		return nil
	}
	err := c.rt.Close(ctx)
	c.rt = nil
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recs",
		Short:         "Share and discover recommendations from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(c.output)
			if err != nil {
				return err
			}
			c.render = &renderer{w: c.out, format: f, now: c.now}
			cmd.SetContext(observability.WithCorrelationID(cmd.Context(), observability.GenerateCorrelationID()))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.output, "output", "o", string(formatTable), "output format: table, json or yaml")

	root.AddCommand(
		c.feedCmd(),
		c.profileCmd(),
		c.searchCmd(),
		c.recCmd(),
		c.likeCmd(),
		c.tuneCmd(),
		c.commentCmd(),
		c.postCmd(),
		c.deleteCmd(),
		c.notificationsCmd(),
	)
	return root
}

func (c *cli) feedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Show recs from people you are tuned in to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := rt.Feed.Assemble(cmd.Context(), service.FeedScope())
			if err != nil {
				return err
			}
			return c.render.Recs(rows)
		},
	}
}

func (c *cli) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [username]",
		Short: "Show a profile and its recs (yours by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			username := rt.Viewer
			if len(args) == 1 {
				username = args[0]
			}
			p, err := rt.Profiles.Load(cmd.Context(), username)
			if err != nil {
				return err
			}
			return c.render.Profile(p)
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find users by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			users, err := rt.Profiles.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.render.Users(users)
		},
	}
}

func (c *cli) recCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rec <id>",
		Short: "Show a rec with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			d, err := rt.Recs.Detail(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.render.Detail(d)
		},
	}
}

func (c *cli) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like or unlike a rec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			// Toggling needs the rec's current state, not a snapshot's.
			if !rt.Store.FreshRec(id) {
				if _, err := rt.Recs.Detail(cmd.Context(), id); err != nil {
					return err
				}
			}
			rec, err := rt.Engagement.ToggleLike(cmd.Context(), id)
			if err != nil {
				return skipped(err)
			}
			return c.render.Rec(*rec)
		},
	}
}

func (c *cli) tuneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tune <username>",
		Short: "Tune in to a user, or stop if you already are",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if u, _ := rt.Store.GetUser(args[0]); u.IsFollowing == nil || !rt.Store.FreshUser(args[0]) {
				if _, err := rt.Profiles.Load(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			u, err := rt.Engagement.ToggleFollow(cmd.Context(), args[0])
			if err != nil {
				return skipped(err)
			}
			return c.render.User(*u)
		},
	}
}

func (c *cli) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text...>",
		Short: "Comment on a rec",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			comment, err := rt.Engagement.AddComment(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return c.render.Comment(*comment)
		},
	}
}

func (c *cli) postCmd() *cobra.Command {
	var in models.CreateRecInput
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Share a new rec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := rt.Recs.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.render.Rec(*rec)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Category, "category", "", "category, e.g. "+strings.Join(models.DefaultCategories, ", "))
	flags.StringVar(&in.Title, "title", "", "title")
	flags.StringVar(&in.Description, "description", "", "why you recommend it")
	flags.StringVar(&in.Link, "link", "", "link to the thing")
	flags.StringVar(&in.Image, "image", "", "image URL")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your recs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if _, ok := rt.Store.GetRec(id); !ok {
				if _, err := rt.Recs.Detail(cmd.Context(), id); err != nil {
					return err
				}
			}
			if err := rt.Recs.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return c.render.Deleted(id)
		},
	}
}

func (c *cli) notificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show notifications and mark them read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			rt.Notifications.StartVisit()
			list, err := rt.Notifications.Reconcile(cmd.Context())
			if list != nil {
				if rerr := c.render.Notifications(list); rerr != nil {
					return rerr
				}
			}
			return err
		},
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 0)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("rec id must be a positive number, got " + strconv.Quote(s))
	}
	return uint(id), nil
}

// skipped turns a rejected duplicate toggle into a quiet no-op.
func skipped(err error) error {
	if errors.Is(err, models.ErrConflictSkipped) {
		observability.GlobalLogger.Info("toggle already in flight, skipped")
		return nil
	}
	return err
}
