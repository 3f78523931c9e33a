package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"audioserver/internal/api"
	"audioserver/internal/catalog"
	"audioserver/internal/clipset"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Ingest and inspect audio files",
	}
	cmd.AddCommand(newFilesAddCommand(ctx))
	cmd.AddCommand(newFilesListCommand(ctx))
	cmd.AddCommand(newFilesShowCommand(ctx))
	return cmd
}

func newFilesAddCommand(ctx *commandContext) *cobra.Command {
	var name, mimeType string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Ingest an audio file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()
			if name == "" {
				name = filepath.Base(args[0])
			}
			return ctx.withService(func(svc *clipset.Service) error {
				file, err := svc.AddFile(cmd.Context(), name, mimeType, src)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FromFile(file))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s, %ss) as %s\n",
					file.Name, file.MimeType, strconv.FormatFloat(file.Duration, 'f', 2, 64), file.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the file's base name)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (defaults to one derived from the name)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var filter catalog.FileFilter
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *clipset.Service) error {
				files, err := svc.ListFiles(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FileListResponse{Files: api.FromFiles(files)})
				}
				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "No files")
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					rows = append(rows, []string{
						f.ID,
						f.Name,
						strconv.FormatFloat(f.Duration, 'f', 2, 64),
						strconv.FormatInt(f.SizeBytes, 10),
						f.MimeType,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Duration (s)", "Bytes", "Type"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					isTerminal(out)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.Name, "name", "", "Only files with exactly this name")
	cmd.Flags().Float64Var(&filter.MaxDuration, "max-duration", 0, "Only files at most this many seconds long")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newFilesShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one file record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *clipset.Service) error {
				file, err := svc.FileInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FromFile(file))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", file.ID)
				fmt.Fprintf(out, "Name:      %s\n", file.Name)
				fmt.Fprintf(out, "Duration:  %ss\n", strconv.FormatFloat(file.Duration, 'f', 2, 64))
				fmt.Fprintf(out, "Type:      %s\n", file.MimeType)
				fmt.Fprintf(out, "Size:      %d bytes\n", file.SizeBytes)
				fmt.Fprintf(out, "Created:   %s\n", file.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
