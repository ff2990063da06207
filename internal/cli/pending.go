package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/scheduler"
)

type flushResult struct {
	Sent      int  `json:"sent"`
	Remaining int  `json:"remaining"`
	Endpoint  bool `json:"endpoint"`
}

// NewPendingCommand creates the pending command group.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Queue data for background sync",
		Long: `Queue data in the sync database and deliver it to TRACKER_SYNC_URL.

A one-shot process has no background sync to register with, so add sends
right away. Anything that could not be sent stays queued for the server or
the next flush.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <data>",
		Short: "Queue data and try to send it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			bs, store, err := c.BackgroundSync(cmd.Context())
			if err != nil {
				return err
			}
			res, err := controller.NewPending(store, nil, bs, c.Logger).Submit(cmd.Context(), args[0])
			queued := errors.Is(err, scheduler.ErrNoSyncEndpoint)
			if err != nil && !queued {
				return err
			}
			return newOutput(rootOpts, cmd).print(res, func(out io.Writer) {
				if queued || res.Sent == 0 {
					_, _ = fmt.Fprintf(out, "queued #%d\n", res.ID)
					return
				}
				_, _ = fmt.Fprintf(out, "queued #%d, sent %d\n", res.ID, res.Sent)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List queued data, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			_, store, err := c.BackgroundSync(cmd.Context())
			if err != nil {
				return err
			}
			items, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if items == nil {
				items = []domain.PendingItem{}
			}
			return newOutput(rootOpts, cmd).print(items, func(out io.Writer) {
				for _, it := range items {
					_, _ = fmt.Fprintf(out, "#%d %s %s\n", it.ID, it.CreatedAt.Format("2006-01-02 15:04:05"), it.Data)
				}
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Send everything queued",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			bs, store, err := c.BackgroundSync(cmd.Context())
			if err != nil {
				return err
			}
			sent, flushErr := bs.Flush(cmd.Context())
			if flushErr != nil && !errors.Is(flushErr, scheduler.ErrNoSyncEndpoint) {
				c.Logger.Warnf("flush stopped early: %v", flushErr)
			}
			left, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			res := flushResult{Sent: sent, Remaining: len(left), Endpoint: c.Config.SyncURL != ""}
			return newOutput(rootOpts, cmd).print(res, func(out io.Writer) {
				if !res.Endpoint {
					_, _ = fmt.Fprintf(out, "no sync endpoint configured, %d queued\n", res.Remaining)
					return
				}
				_, _ = fmt.Fprintf(out, "sent %d, %d queued\n", res.Sent, res.Remaining)
			})
		},
	})

	return cmd
}
