package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tracker/internal/app"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/store/local"
)

// NewJokesCommand creates the jokes command group.
func NewJokesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jokes",
		Short: "Fetch and manage stored jokes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "fetch",
		Short: "Fetch a batch from the remote source, store it and notify listeners",
		Long: `Fetch a batch of jokes, store them by id and send "data-updated" on the channel.
A failed fetch sends "fetch-error" instead. With Redis, a running server's pages
receive the notification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJokes(rootOpts, cmd, func(ctx context.Context, c *app.Components, jokes *local.Jokes) error {
				js, err := c.JokeSync(ctx)
				if err != nil {
					return err
				}
				defer js.Stop()
				return js.Sync(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored jokes in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJokes(rootOpts, cmd, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored joke by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("id must be an integer: %w", err)
			}
			return runJokes(rootOpts, cmd, func(ctx context.Context, _ *app.Components, jokes *local.Jokes) error {
				return jokes.Delete(ctx, id)
			})
		},
	})

	return cmd
}

// runJokes applies op (if any) then prints the stored jokes.
func runJokes(rootOpts *RootOptions, cmd *cobra.Command, op func(context.Context, *app.Components, *local.Jokes) error) error {
	c, err := rootOpts.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	db, err := c.OpenJokes(ctx)
	if err != nil {
		return err
	}
	jokes := local.NewJokes(db)

	if op != nil {
		if err := op(ctx, c, jokes); err != nil {
			return err
		}
	}

	all, err := jokes.List(ctx)
	if err != nil {
		return err
	}
	view := domain.JokesView{Jokes: all}
	if view.Jokes == nil {
		view.Jokes = []domain.Joke{}
	}
	return newOutput(rootOpts, cmd).print(view, func(out io.Writer) {
		if len(view.Jokes) == 0 {
			_, _ = fmt.Fprintln(out, "no jokes stored")
			return
		}
		for _, j := range view.Jokes {
			_, _ = fmt.Fprintf(out, "#%d %s\n", j.ID, j.Setup)
			if j.Delivery != "" {
				_, _ = fmt.Fprintf(out, "    %s\n", j.Delivery)
			}
		}
	})
}
