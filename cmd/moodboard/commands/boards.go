/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"moodboard/internal/storage"
)

func newBoardsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "Manage the board index",
	}
	cmd.AddCommand(
		newBoardsListCmd(g),
		newBoardsCreateCmd(g),
		newBoardsRenameCmd(g),
		newBoardsTrashCmd(g, true),
		newBoardsTrashCmd(g, false),
		newBoardsPurgeCmd(g),
	)
	return cmd
}

func newBoardsListCmd(g *globals) *cobra.Command {
	var opts storage.ListOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()
			boards, err := a.Index().List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return outputJSON(cmd.OutOrStdout(), boards)
			}
			return outputTable(cmd.OutOrStdout(), boards)
		},
	}
	cmd.Flags().BoolVar(&opts.Trashed, "trashed", false, "list the trash instead")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "only boards whose name contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputTable(w io.Writer, boards []storage.BoardMeta) error {
	if len(boards) == 0 {
		_, err := fmt.Fprintln(w, "No boards.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPDATED")
	for _, b := range boards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.Name, b.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func newBoardsCreateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create an empty board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			s, err := a.Create(cmd.Context(), name)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created board %q (%s)", s.Meta.Name, s.ID())
			return nil
		},
	}
}

func newBoardsRenameCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()
			if err := a.Index().Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Renamed %s to %q", args[0], args[1])
			return nil
		},
	}
}

// newBoardsTrashCmd builds "trash" or, with trash false, "restore".
func newBoardsTrashCmd(g *globals, trash bool) *cobra.Command {
	use, short, verb := "restore <id>...", "Restore boards from the trash", "Restored"
	if trash {
		use, short, verb = "trash <id>...", "Move boards to the trash", "Trashed"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()
			for _, id := range args {
				op := a.Index().Restore
				if trash {
					op = a.Index().Trash
				}
				if err := op(cmd.Context(), id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				success(cmd.OutOrStdout(), "%s %s", verb, id)
			}
			return nil
		},
	}
}

func newBoardsPurgeCmd(g *globals) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete boards that have been in the trash longer than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("days") {
				g.cfg.Index.TrashRetentionDays = days
			}
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()
			ids, err := a.PurgeTrash(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Purged %d board(s)", len(ids))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "override the retention period in days (0 purges the whole trash)")
	return cmd
}
