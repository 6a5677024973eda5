package cli

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/erazemk/vrt/internal/client"
	"github.com/erazemk/vrt/internal/model"
)

func newLocationCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage garden locations",
	}

	cmd.AddCommand(
		newLocationListCmd(app),
		newLocationAddCmd(app),
		newLocationRemoveCmd(app),
	)

	return cmd
}

func newLocationListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Session()
			if err != nil {
				return err
			}
			if _, err := app.Request(cmd.Context(), client.Action{Type: client.LoadLocationsRequest, Payload: s.UserID}); err != nil {
				return err
			}

			locations := make([]model.Location, 0)
			for _, l := range app.Store.GetState().Locations {
				locations = append(locations, l)
			}
			if len(locations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No locations found.")
				return nil
			}
			slices.SortFunc(locations, func(a, b model.Location) int {
				return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.ID, b.ID))
			})

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
			for _, l := range locations {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Title, l.Description)
			}
			return tw.Flush()
		},
	}
}

func newLocationAddCmd(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}
			out, err := app.Request(cmd.Context(), client.Action{
				Type:    client.CreateLocationRequest,
				Payload: model.Location{Title: args[0], Description: description},
			})
			if err != nil {
				return err
			}
			var created model.Location
			if err := decodeOutcome(out, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created location %s [%s]\n", created.Title, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Description")

	return cmd
}

func newLocationRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an empty location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}
			if _, err := app.Request(cmd.Context(), client.Action{Type: client.DeleteLocationRequest, Payload: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted location %s\n", args[0])
			return nil
		},
	}
}
