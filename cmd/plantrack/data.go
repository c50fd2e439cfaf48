package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/holiday"
	"github.com/rpggio/plantrack/internal/report"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of all projects and templates",
		Long: `Without --out the backup is stored in the configured archive
(local directory or S3 bucket) as PM_System_Backup_YYYYMMDD.json.
With --out it is written to that file, or to stdout for "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				name, err := a.backups.Export(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			}
			data, err := a.backups.Document()
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringP("out", "o", "", "Write to a file instead of the archive (- for stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace all data from a backup file or archived backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if (len(args) == 0) == (name == "") {
				return fmt.Errorf("pass either a backup file or --name")
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				projects  int
				templates bool
			)
			if name != "" {
				doc, err := a.backups.Restore(cmd.Context(), name)
				if err != nil {
					return err
				}
				projects, templates = len(doc.Projects), doc.Templates != nil
			} else {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read backup: %w", err)
				}
				doc, err := a.backups.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				projects, templates = len(doc.Projects), doc.Templates != nil
			}
			if err := a.projects.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("save imported data: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d projects (templates replaced: %t)\n", projects, templates)
			return nil
		},
	}
	cmd.Flags().StringP("name", "n", "", "Restore a named backup from the archive")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [project-id]",
		Short: "Write an xlsx report for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, ok := a.projects.Store().Project(project.ID(args[0]))
			if !ok {
				return fmt.Errorf("%w: %s", project.ErrProjectNotFound, args[0])
			}
			now := time.Now()
			dir, _ := cmd.Flags().GetString("dir")
			path := filepath.Join(dir, report.FileName(p, now))

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create report: %w", err)
			}
			if err := report.Write(f, p, now); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringP("dir", "d", ".", "Output directory")
	return cmd
}

func holidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays [year]",
		Short: "Fetch and print the holiday table for a year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().Year()
			if len(args) == 1 {
				if _, err := fmt.Sscanf(args[0], "%d", &year); err != nil {
					return fmt.Errorf("invalid year %q", args[0])
				}
			}
			url, _ := cmd.Flags().GetString("url")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			days, err := holiday.NewClient(url, timeout, nil).Fetch(cmd.Context(), year)
			if err != nil {
				return err
			}
			book := holiday.NewBook()
			book.Add(days)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Holidays %d\n%s\n", year, strings.Repeat("=", 40))
			for d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
				key := d.Format(project.DateLayout)
				if name, ok := book.Lookup(key); ok {
					fmt.Fprintf(out, "  %s  %-3s %s\n", key, d.Weekday().String()[:3], name)
				}
			}
			fmt.Fprintf(out, "%d days\n", book.Len())
			return nil
		},
	}
	cmd.Flags().String("url", holiday.DefaultURL, "Holiday source URL pattern with %d for the year")
	cmd.Flags().Duration("timeout", 10*time.Second, "Fetch timeout")
	return cmd
}
