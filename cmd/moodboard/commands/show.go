/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moodboard/internal/board"
)

func newShowCmd(g *globals) *cobra.Command {
	var asJSON bool
	var query string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the items of a saved board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(cmd.Context()) }()
			meta, err := a.Index().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			b, err := a.Load(cmd.Context(), meta.ID)
			if err != nil {
				return err
			}
			if asJSON {
				return outputJSON(cmd.OutOrStdout(), b.Document())
			}
			return outputBoard(cmd.OutOrStdout(), meta.Name, b, query)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the board document")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only items whose name or text matches")
	return cmd
}

func outputBoard(w io.Writer, name string, b *board.Board, query string) error {
	vp := b.Viewport()
	fmt.Fprintf(w, "%s (%s)\n", name, b.ID())
	fmt.Fprintf(w, "Viewport: offset %.0f,%.0f zoom %.2f\n", vp.Offset.X, vp.Offset.Y, vp.Zoom)
	items := b.Items()
	if strings.TrimSpace(query) != "" {
		items = b.FindItems(query)
	}
	fmt.Fprintf(w, "Items: %d\n", len(items))
	if len(items) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tPOSITION\tSIZE")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f,%.0f\t%.0fx%.0f\n",
			it.ID, it.Content.TypeLabel(), it.DisplayName(), it.Position.X, it.Position.Y, it.Size.W, it.Size.H)
	}
	return tw.Flush()
}
