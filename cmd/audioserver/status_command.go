package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"audioserver/internal/api"
	"audioserver/internal/clipset"
	"audioserver/internal/daemonctl"
	"audioserver/internal/deps"
	"audioserver/internal/preflight"
)

const statusProbeTimeout = 2 * time.Second

type statusReport struct {
	Server       *api.Status            `json:"server,omitempty"`
	ServerError  string                 `json:"serverError,omitempty"`
	Catalog      api.CatalogStats       `json:"catalog"`
	DatabasePath string                 `json:"databasePath"`
	FilesDir     string                 `json:"filesDir"`
	Dependencies []api.DependencyStatus `json:"dependencies"`
	Checks       []api.CheckResult      `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server, catalog and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				Dependencies: api.FromDependencies(deps.Check(cmd.Context(), cfg)),
				Checks:       api.FromChecks(preflight.RunAll(cmd.Context(), cfg)),
			}

			probeCtx, cancel := context.WithTimeout(cmd.Context(), statusProbeTimeout)
			server, err := daemonctl.NewClient(cfg.Server.Bind).Status(probeCtx)
			cancel()
			switch {
			case err == nil:
				report.Server = server
			case !errors.Is(err, daemonctl.ErrDaemonNotRunning):
				report.ServerError = err.Error()
			}

			if err := ctx.withService(func(svc *clipset.Service) error {
				status, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				report.Catalog = api.CatalogStats{
					Files:          status.Files,
					Clips:          status.Clips,
					Sets:           status.Sets,
					ArchiveCache:   status.ArchiveCache,
					CachedArchives: status.CachedArchives,
				}
				report.DatabasePath = status.DatabasePath
				report.FilesDir = status.FilesDir
				return nil
			}); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(renderStatus(report, cfg.Server.Bind, isTerminal(out)), "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func renderStatus(report statusReport, bind string, colorize bool) []string {
	lines := renderSectionHeader("Server", colorize)
	switch {
	case report.Server != nil && report.Server.Running:
		msg := fmt.Sprintf("Running on %s (pid %d)", report.Server.Address, report.Server.PID)
		lines = append(lines, renderStatusLine("Server", statusOK, msg, colorize))
	case report.ServerError != "":
		lines = append(lines, renderStatusLine("Server", statusError, report.ServerError, colorize))
	default:
		lines = append(lines, renderStatusLine("Server", statusWarn, "Not running on "+bind, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Catalog", colorize)...)
	lines = append(lines,
		renderStatusLine("Database", statusInfo, report.DatabasePath, colorize),
		renderStatusLine("Files directory", statusInfo, report.FilesDir, colorize),
		renderStatusLine("Files", statusInfo, fmt.Sprint(report.Catalog.Files), colorize),
		renderStatusLine("Clips", statusInfo, fmt.Sprint(report.Catalog.Clips), colorize),
		renderStatusLine("Sets", statusInfo, fmt.Sprint(report.Catalog.Sets), colorize),
	)
	cacheMsg := "disabled"
	if report.Catalog.ArchiveCache {
		cacheMsg = fmt.Sprintf("enabled, %d archives", report.Catalog.CachedArchives)
	}
	lines = append(lines, renderStatusLine("Archive cache", statusInfo, cacheMsg, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range report.Dependencies {
		kind := statusOK
		msg := dep.Version
		if !dep.Available {
			kind = statusWarn
			if !dep.Optional {
				kind = statusError
			}
			msg = dep.Detail
		}
		if msg == "" {
			msg = "available: " + yesNo(dep.Available)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, msg, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}
