package cli

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/vrt/internal/client"
	"github.com/erazemk/vrt/internal/model"
)

func newNoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage plant notes",
	}

	cmd.AddCommand(
		newNoteListCmd(app),
		newNoteAddCmd(app),
		newNoteRemoveCmd(app),
	)

	return cmd
}

func newNoteListCmd(app *App) *cobra.Command {
	var plantID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Session()
			if err != nil {
				return err
			}
			if _, err := app.Request(cmd.Context(), client.Action{Type: client.LoadNotesRequest, Payload: s.UserID}); err != nil {
				return err
			}

			var notes []model.Note
			for _, n := range app.Store.GetState().Notes {
				if plantID == "" || n.References(plantID) {
					notes = append(notes, n)
				}
			}
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes found.")
				return nil
			}
			slices.SortFunc(notes, func(a, b model.Note) int {
				return cmp.Or(a.Date.Compare(b.Date.Time), cmp.Compare(a.ID, b.ID))
			})

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tDATE\tPLANTS\tIMAGES\tNOTE")
			for _, n := range notes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					n.ID, n.Date, strings.Join(n.PlantIDs, ","), len(n.Images), n.Note)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&plantID, "plant", "", "Only notes mentioning this plant")

	return cmd
}

func newNoteAddCmd(app *App) *cobra.Command {
	var plantIDs, files []string
	var date, id string

	cmd := &cobra.Command{
		Use:   "add [TEXT]",
		Short: "Write a note about one or more plants",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}

			up := client.NoteUpsert{Note: model.Note{ID: id, PlantIDs: plantIDs}}
			if len(args) > 0 {
				up.Note.Note = args[0]
			}
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return err
				}
				up.Note.Date = d
			}
			for _, path := range files {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading photo: %w", err)
				}
				up.Files = append(up.Files, client.File{Name: filepath.Base(path), Data: data})
			}

			out, err := app.Request(cmd.Context(), client.Action{Type: client.UpsertNoteRequest, Payload: up})
			if err != nil {
				return err
			}
			var saved model.Note
			if err := decodeOutcome(out, &saved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved note %s (%d images)\n", saved.ID, len(saved.Images))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&plantIDs, "plant", nil, "Plant ID (repeatable)")
	cmd.Flags().StringSliceVar(&files, "file", nil, "Photo to attach (repeatable)")
	cmd.Flags().StringVar(&date, "date", "", "Date (MM/DD/YYYY)")
	cmd.Flags().StringVar(&id, "id", "", "Update this note instead of creating one")
	_ = cmd.MarkFlagRequired("plant")

	return cmd
}

func newNoteRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Session(); err != nil {
				return err
			}
			if _, err := app.Request(cmd.Context(), client.Action{Type: client.DeleteNoteRequest, Payload: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
			return nil
		},
	}
}
