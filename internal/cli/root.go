// Package cli implements the vrtctl command-line client.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erazemk/vrt/internal/client"
)

// NewRootCmd creates the top-level "vrtctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "vrtctl",
		Short:         "Keep track of your plants, notes and garden locations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(app),
		newRegisterCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newDeleteAccountCmd(app),
		newPlantCmd(app),
		newNoteCmd(app),
		newLocationCmd(app),
	)

	return root
}

// decodeOutcome unmarshals the server response carried by a success action.
func decodeOutcome(act client.Action, v any) error {
	raw, ok := act.Payload.(json.RawMessage)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", act.Type, act.Payload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: decoding response: %w", act.Type, err)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
