// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/logging"
)

type commands struct {
	open   opener
	author *string
}

// withApp opens the store, runs fn and closes the store again.
func (c *commands) withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func (c *commands) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the stored document to the current schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				res := a.engine.Migrate(cmd.Context(), *c.author)
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Message)
				}
				return nil
			})
		},
	}
}

func (c *commands) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				st, err := a.engine.Status(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func (c *commands) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				return printJSON(cmd.OutOrStdout(), a.store.Load(cmd.Context()))
			})
		},
	}
}

func (c *commands) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <path> <json-value>",
		Short:   "Change one value of the current settings",
		Example: `designctl set sections.hero.colors.accent.value '"#ff6600"'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("value %q is not valid JSON (quote strings)", args[1])
			}
			return c.withApp(cmd, func(a *app) error {
				doc, err := a.store.SetPath(cmd.Context(), args[0], json.RawMessage(args[1]), *c.author)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s (version %s)\n", args[0], doc.Version)
				return err
			})
		},
	}
}

func (c *commands) exportCmd() *cobra.Command {
	var output string

	command := &cobra.Command{
		Use:   "export",
		Short: "Export the current settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				data, err := a.store.Export(cmd.Context())
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), data)
					return err
				}
				return os.WriteFile(output, []byte(data+"\n"), 0644)
			})
		},
	}
	command.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return command
}

func (c *commands) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the current settings with an exported document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading import: %w", err)
			}

			return c.withApp(cmd, func(a *app) error {
				doc, err := a.store.Import(cmd.Context(), string(data), *c.author)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported settings (version %s)\n", doc.Version)
				return err
			})
		},
	}
}

func (c *commands) historyCmd() *cobra.Command {
	var limit int

	command := &cobra.Command{
		Use:   "history",
		Short: "List history entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				entries, err := a.store.History().List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				table := newTable(cmd.OutOrStdout())
				_, _ = fmt.Fprintln(table, "ID\tTIMESTAMP\tAUTHOR\tDESCRIPTION")
				for _, e := range entries {
					_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", e.ID, formatTime(e.Timestamp), e.Author, e.Description)
				}
				return table.Flush()
			})
		},
	}
	command.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to list (0 for all)")
	return command
}

func (c *commands) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <history-id>",
		Short: "Print one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				entry, err := a.store.History().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entry)
			})
		},
	}
}

func (c *commands) rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <history-id>",
		Short: "Make a history entry's settings current again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				if _, err := a.store.Rollback(cmd.Context(), args[0], *c.author); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "rolled back to %s\n", args[0])
				return err
			})
		},
	}
}

func (c *commands) diffCmd() *cobra.Command {
	var asJSON bool

	command := &cobra.Command{
		Use:   "diff <from-id> [to-id]",
		Short: "Compare two history entries (to defaults to current)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := design.CurrentRef
			if len(args) == 2 {
				to = args[1]
			}
			return c.withApp(cmd, func(a *app) error {
				cmp, err := a.store.Compare(cmd.Context(), args[0], to)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), cmp)
				}

				table := newTable(cmd.OutOrStdout())
				_, _ = fmt.Fprintln(table, "PATH\tTYPE\tOLD\tNEW")
				for _, d := range cmp.Differences {
					_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", d.Path, d.Type, compactValue(d.OldValue), compactValue(d.NewValue))
				}
				if err := table.Flush(); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d added, %d removed, %d modified\n",
					cmp.Summary.Added, cmp.Summary.Removed, cmp.Summary.Modified)
				return err
			})
		},
	}
	command.Flags().BoolVar(&asJSON, "json", false, "print the comparison as JSON")
	return command
}

func compactValue(v any) string {
	if v == nil {
		return "-"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func (c *commands) compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Drop dangling ids from the history index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				removed, err := a.store.History().Compact(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d index entries\n", removed)
				return err
			})
		},
	}
}

func (c *commands) backupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List migration backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				backups, err := a.engine.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				table := newTable(cmd.OutOrStdout())
				_, _ = fmt.Fprintln(table, "ID\tCREATED\tEXPIRES\tSIZE")
				for _, b := range backups {
					_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", b.ID, formatTime(b.Timestamp),
						formatTime(b.ExpiresAt), strconv.Itoa(len(b.Settings)))
				}
				return table.Flush()
			})
		},
	}
}

func (c *commands) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore the document saved before a migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				if _, err := a.engine.RestoreFromBackup(cmd.Context(), args[0], *c.author); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "restored backup %s\n", args[0])
				return err
			})
		},
	}
}

func (c *commands) eventsCmd() *cobra.Command {
	var (
		limit    int
		clearAll bool
	)

	command := &cobra.Command{
		Use:   "events",
		Short: "List recorded warnings and errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app) error {
				if clearAll {
					return logging.ClearEvents(cmd.Context(), a.kv)
				}
				events, err := logging.ListEvents(cmd.Context(), a.kv, limit)
				if err != nil {
					return err
				}
				table := newTable(cmd.OutOrStdout())
				_, _ = fmt.Fprintln(table, "TIME\tLEVEL\tCATEGORY\tMESSAGE")
				for _, e := range events {
					_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.Level, e.Category, e.Message)
				}
				return table.Flush()
			})
		},
	}
	command.Flags().IntVarP(&limit, "limit", "n", 50, "maximum events to list (0 for all)")
	command.Flags().BoolVar(&clearAll, "clear", false, "delete all recorded events")
	return command
}
