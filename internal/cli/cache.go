package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type cacheStatus struct {
	Generation  string   `json:"generation"`
	State       string   `json:"state,omitempty"`
	Generations []string `json:"generations"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage offline cache generations",
		Long: `Manage the offline cache worker's generations.

A generation is named after the manifest's app and version. Activation deletes
every other generation. Without Redis the caches live only in this process.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Store every manifest resource in the current generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(rootOpts, cmd, false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "activate",
		Short: "Install, then delete every other generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(rootOpts, cmd, true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			w, err := c.Worker()
			if err != nil {
				return err
			}
			gens, err := w.Generations(cmd.Context())
			if err != nil {
				return err
			}
			return printCache(rootOpts, cmd, cacheStatus{Generation: w.Generation(), Generations: gens})
		},
	})

	return cmd
}

func runCache(rootOpts *RootOptions, cmd *cobra.Command, activate bool) error {
	c, err := rootOpts.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	w, err := c.Worker()
	if err != nil {
		return err
	}
	if err := w.Install(ctx); err != nil {
		return err
	}
	if activate {
		if err := w.Activate(ctx); err != nil {
			return err
		}
	}

	gens, err := w.Generations(ctx)
	if err != nil {
		return err
	}
	return printCache(rootOpts, cmd, cacheStatus{
		Generation:  w.Generation(),
		State:       w.State().String(),
		Generations: gens,
	})
}

func printCache(rootOpts *RootOptions, cmd *cobra.Command, st cacheStatus) error {
	return newOutput(rootOpts, cmd).print(st, func(out io.Writer) {
		if st.State != "" {
			_, _ = fmt.Fprintf(out, "%s %s\n", st.Generation, st.State)
		}
		for _, g := range st.Generations {
			mark := " "
			if g == st.Generation {
				mark = "*"
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", mark, g)
		}
	})
}
