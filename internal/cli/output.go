package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// output writes a result as JSON or as text.
type output struct {
	format string
	w      io.Writer
}

func newOutput(opts *RootOptions, cmd *cobra.Command) *output {
	return &output{format: opts.Format, w: cmd.OutOrStdout()}
}

// print encodes v in JSON mode, otherwise calls text.
func (o *output) print(v any, text func(w io.Writer)) error {
	if o.format == "json" {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(o.w)
	return nil
}
