package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audioserver/internal/api"
	"audioserver/internal/archive"
	"audioserver/internal/catalog"
	"audioserver/internal/clipset"
	"audioserver/internal/fileutil"
)

func newSetsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Create, inspect and export clip sets",
	}
	cmd.AddCommand(newSetsNewCommand(ctx))
	cmd.AddCommand(newSetsShowCommand(ctx))
	cmd.AddCommand(newSetsListCommand(ctx))
	cmd.AddCommand(newSetsExportCommand(ctx))
	return cmd
}

func newSetsNewCommand(ctx *commandContext) *cobra.Command {
	var count int
	var length float64
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Sample a new random clip set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *clipset.Service) error {
				set, err := svc.RequestNewSet(cmd.Context(), count, length)
				if err != nil {
					return err
				}
				return printSet(cmd, svc, set, jsonOut)
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of clips to sample")
	cmd.Flags().Float64VarP(&length, "length", "l", 5, "Clip length in seconds")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newSetsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the clips of a stored set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *clipset.Service) error {
				set, err := svc.RequestExistingSet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printSet(cmd, svc, set, jsonOut)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newSetsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *clipset.Service) error {
				sets, err := svc.ListSets(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					resp := api.SetListResponse{Sets: make([]api.ClipSet, 0, len(sets))}
					for _, set := range sets {
						resp.Sets = append(resp.Sets, api.FromClipSet(set, nil, nil))
					}
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(sets) == 0 {
					fmt.Fprintln(out, "No sets")
					return nil
				}
				rows := make([][]string, 0, len(sets))
				for _, set := range sets {
					rows = append(rows, []string{
						set.ID,
						strconv.Itoa(set.Len()),
						set.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Clips", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
					isTerminal(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newSetsExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the tar archive of a set",
		Long: "Write the tar archive of a stored set to --output, or to stdout when it is\n" +
			"redirected. Each entry is a WAV rendering of one clip.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(output)
			out := cmd.OutOrStdout()
			if target == "" && isTerminal(out) {
				return errors.New("refusing to write a tar archive to a terminal (use --output or redirect stdout)")
			}
			return ctx.withService(func(svc *clipset.Service) error {
				set, err := svc.RequestExistingSet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if target == "" {
					return svc.BuildArchive(cmd.Context(), out, set)
				}
				if target == "-" {
					target = archive.FileName(set.ID)
				}
				written, err := exportToFile(cmd.Context(), svc, set, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes, %d clips)\n", target, written, set.Len())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive destination (\"-\" uses the default archive name)")
	return cmd
}

func exportToFile(ctx context.Context, svc *clipset.Service, set catalog.ClipSet, target string) (int64, error) {
	return fileutil.WriteAtomicFunc(target, 0o644, func(w io.Writer) error {
		return svc.BuildArchive(ctx, w, set)
	})
}

func printSet(cmd *cobra.Command, svc *clipset.Service, set catalog.ClipSet, jsonOut bool) error {
	ctx := cmd.Context()
	clips, err := svc.SetClips(ctx, set)
	if err != nil {
		return err
	}
	files, err := svc.ClipFiles(ctx, clips)
	if err != nil {
		return err
	}
	view := api.FromClipSet(set, clips, files)
	if jsonOut {
		return writeJSON(cmd, view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s (%d clips)\n", view.ID, len(view.ClipIDs))
	fmt.Fprintf(out, "Archive: %s\n", view.ArchiveName)
	if len(view.Clips) == 0 {
		fmt.Fprintln(out, "No clips; the catalog has no files long enough")
		return nil
	}
	rows := make([][]string, 0, len(view.Clips))
	for _, clip := range view.Clips {
		rows = append(rows, []string{clip.Fragment, clip.Start, clip.Stop, clip.ID})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Entry", "Start", "Stop", "Clip ID"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
		isTerminal(out)))
	return nil
}
