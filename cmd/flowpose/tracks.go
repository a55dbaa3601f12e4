package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/flowpose/internal/fsutil"
	"github.com/banshee-data/flowpose/internal/storage/sqlite"
)

const reportsDir = "reports"

func newTracksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "Inspect stored tracks",
	}
	cmd.AddCommand(
		newTracksListCmd(a),
		newTracksShowCmd(a),
		newTracksDeleteCmd(a),
		newTracksPlotCmd(a),
		newTracksMigrateCmd(a),
	)
	return cmd
}

// withStore opens the configured database for the duration of fn.
func (a *app) withStore(fn func(*sqlite.TrackStore) error) error {
	db, err := sqlite.Open(a.cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(sqlite.NewTrackStore(db.DB))
}

func newTracksListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *sqlite.TrackStore) error {
				tracks, err := store.ListTracks(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-36s  %-20s  %-16s  %6s  %s\n", "TRACK", "CREATED", "MODE", "STEPS", "SOURCE")
				for _, t := range tracks {
					created := time.Unix(0, t.CreatedAt).UTC().Format("2006-01-02 15:04:05")
					fmt.Fprintf(out, "%-36s  %-20s  %-16s  %6d  %s\n", t.TrackID, created, t.Mode, t.Steps, t.Source)
				}
				return nil
			})
		},
	}
}

func newTracksShowCmd(a *app) *cobra.Command {
	var withSteps bool
	cmd := &cobra.Command{
		Use:   "show TRACK_ID",
		Short: "Print a track as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *sqlite.TrackStore) error {
				track, err := store.GetTrack(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				steps, err := store.Steps(cmd.Context(), track.TrackID)
				if err != nil {
					return err
				}
				doc := map[string]interface{}{"track": track, "steps": len(steps)}
				if len(steps) > 0 {
					doc["final_position"] = steps[len(steps)-1].Position
				}
				if withSteps {
					doc["step_records"] = steps
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}
	cmd.Flags().BoolVar(&withSteps, "steps", false, "include every step record")
	return cmd
}

func newTracksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TRACK_ID",
		Short: "Delete a track and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *sqlite.TrackStore) error {
				if err := store.DeleteTrack(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newTracksPlotCmd(a *app) *cobra.Command {
	var pngPath, htmlPath string
	cmd := &cobra.Command{
		Use:   "plot TRACK_ID",
		Short: "Render a stored track as PNG and/or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *sqlite.TrackStore) error {
				track, err := store.GetTrack(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				pngPath, htmlPath := pngPath, htmlPath
				if pngPath == "" && htmlPath == "" {
					if pngPath, htmlPath, err = a.defaultReportPaths(track); err != nil {
						return err
					}
				}
				if err := a.writeReports(cmd.Context(), store, track, pngPath, htmlPath); err != nil {
					return err
				}
				for _, p := range []string{pngPath, htmlPath} {
					if p != "" {
						fmt.Fprintln(cmd.OutOrStdout(), p)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "PNG output path (default: <output_dir>/reports/<source>_<id>.png with the HTML alongside)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML output path")
	cmd.Flags().String("output-dir", "", "directory receiving reports/ when no path is given")
	return cmd
}

func newTracksMigrateCmd(a *app) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Show the schema version, or migrate to --to",
		Long: `Print the track database schema version. With --to the schema is
migrated up or down to that version first, e.g. before running an older
flowpose binary against the same database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlite.Open(a.cfg.GetDBPath())
			if err != nil {
				return err
			}
			defer db.Close()
			if cmd.Flags().Changed("to") {
				if to < 1 {
					return fmt.Errorf("--to must be at least 1, got %d", to)
				}
				if err := db.MigrateTo(uint(to)); err != nil {
					return err
				}
			}
			version, dirty, err := db.MigrateVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "target schema version")
	return cmd
}

// defaultReportPaths names both reports after the track's source and ID
// under <output_dir>/reports.
func (a *app) defaultReportPaths(track *sqlite.Track) (string, string, error) {
	dir, err := fsutil.JoinWithin(a.cfg.GetOutputDir(), reportsDir)
	if err != nil {
		return "", "", err
	}
	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	id := track.TrackID
	if len(id) > 8 {
		id = id[:8]
	}
	base := fsutil.SanitizeName(track.Source) + "_" + id
	pngPath, err := fsutil.JoinWithin(dir, base+".png")
	if err != nil {
		return "", "", err
	}
	htmlPath, err := fsutil.JoinWithin(dir, base+".html")
	if err != nil {
		return "", "", err
	}
	return pngPath, htmlPath, nil
}
