package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/ctxutil"
)

func actorFrom(cmd *cobra.Command) string {
	return ctxutil.Actor(cmd.Context(), "")
}
