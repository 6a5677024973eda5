package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/vrt/internal/client"
	"github.com/erazemk/vrt/internal/model"
)

func newPlantCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plant",
		Short: "Manage plants",
	}

	cmd.AddCommand(
		newPlantListCmd(app),
		newPlantAddCmd(app),
		newPlantShowCmd(app),
		newPlantRemoveCmd(app),
	)

	return cmd
}

func sortedPlants(plants map[string]model.Plant) []model.Plant {
	list := make([]model.Plant, 0, len(plants))
	for _, p := range plants {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b model.Plant) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return list
}

func newPlantListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your plants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Session()
			if err != nil {
				return err
			}
			if _, err := app.Request(cmd.Context(), client.Action{Type: client.LoadPlantsRequest, Payload: s.UserID}); err != nil {
				return err
			}

			plants := sortedPlants(app.Store.GetState().Plants)
			if len(plants) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plants found.")
				return nil
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTITLE\tBOTANICAL NAME\tPLANTED")
			for _, p := range plants {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.BotanicalName, p.PlantedOn)
			}
			return tw.Flush()
		},
	}
}

func newPlantAddCmd(app *App) *cobra.Command {
	var p model.Plant
	var planted string

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}
			p.Title = args[0]
			if planted != "" {
				d, err := model.ParseDate(planted)
				if err != nil {
					return err
				}
				p.PlantedOn = d
			}

			out, err := app.Request(cmd.Context(), client.Action{Type: client.CreatePlantRequest, Payload: p})
			if err != nil {
				return err
			}
			var created model.Plant
			if err := decodeOutcome(out, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plant %s [%s]\n", created.Title, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.CommonName, "common", "", "Common name")
	cmd.Flags().StringVar(&p.BotanicalName, "botanical", "", "Botanical name (ASCII)")
	cmd.Flags().StringVar(&p.Description, "description", "", "Description")
	cmd.Flags().StringVar(&p.LocationID, "location", "", "Location ID")
	cmd.Flags().Float64Var(&p.Price, "price", 0, "Price paid")
	cmd.Flags().StringVar(&planted, "planted", "", "Planting date (MM/DD/YYYY)")

	return cmd
}

func newPlantShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}
			out, err := app.Request(cmd.Context(), client.Action{Type: client.LoadPlantRequest, Payload: args[0]})
			if err != nil {
				return err
			}
			var p model.Plant
			if err := decodeOutcome(out, &p); err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
			fmt.Fprintf(tw, "Title:\t%s\n", p.Title)
			if p.CommonName != "" {
				fmt.Fprintf(tw, "Common name:\t%s\n", p.CommonName)
			}
			if p.BotanicalName != "" {
				fmt.Fprintf(tw, "Botanical name:\t%s\n", p.BotanicalName)
			}
			if p.LocationID != "" {
				fmt.Fprintf(tw, "Location:\t%s\n", p.LocationID)
			}
			if !p.PlantedOn.IsZero() {
				fmt.Fprintf(tw, "Planted:\t%s\n", p.PlantedOn)
			}
			if p.Price > 0 {
				fmt.Fprintf(tw, "Price:\t%.2f\n", p.Price)
			}
			if p.Description != "" {
				fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
			}
			return tw.Flush()
		},
	}
}

func newPlantRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a plant and the notes that only mention it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}
			out, err := app.Request(cmd.Context(), client.Action{Type: client.DeletePlantRequest, Payload: args[0]})
			if err != nil {
				return err
			}
			var res struct {
				Found   bool     `json:"found"`
				Deleted []string `json:"deletedNoteIds"`
				Pruned  []string `json:"prunedNoteIds"`
			}
			if err := decodeOutcome(out, &res); err != nil {
				return err
			}
			if !res.Found {
				fmt.Fprintf(cmd.OutOrStdout(), "Plant %s not found.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plant %s (%d notes deleted, %d notes kept for other plants).\n",
				args[0], len(res.Deleted), len(res.Pruned))
			return nil
		},
	}
}
