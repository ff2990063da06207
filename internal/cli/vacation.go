package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/domain"
)

// NewVacationCommand creates the vacation command group.
func NewVacationCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vacation",
		Short: "Record and list past vacations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "add <start-date> <end-date>",
		Short:   "Record a vacation (dates as YYYY-MM-DD)",
		Example: "  tracker vacation add 2024-07-01 2024-07-14",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVacation(rootOpts, cmd, func(v *controller.Vacations) (domain.VacationsView, error) {
				return v.Submit(cmd.Context(), args[0], args[1])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List vacations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVacation(rootOpts, cmd, func(v *controller.Vacations) (domain.VacationsView, error) {
				return v.View(cmd.Context())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <index>",
		Short: "Delete the vacation at index (as shown by list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer: %w", err)
			}
			return runVacation(rootOpts, cmd, func(v *controller.Vacations) (domain.VacationsView, error) {
				return v.Delete(cmd.Context(), index)
			})
		},
	})

	return cmd
}

func runVacation(rootOpts *RootOptions, cmd *cobra.Command, op func(*controller.Vacations) (domain.VacationsView, error)) error {
	c, err := rootOpts.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	view, err := op(c.Vacations())
	if err != nil {
		return err
	}
	return newOutput(rootOpts, cmd).print(view, func(out io.Writer) {
		if view.Header == "" {
			_, _ = fmt.Fprintln(out, "no vacations recorded")
			return
		}
		_, _ = fmt.Fprintln(out, view.Header)
		for _, item := range view.Items {
			_, _ = fmt.Fprintf(out, "%3d  %s\n", item.Index, item.Text)
		}
	})
}
