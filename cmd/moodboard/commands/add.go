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
	"strings"

	"github.com/spf13/cobra"

	"moodboard/internal/vector"
)

func newAddCmd(g *globals) *cobra.Command {
	var x, y float32
	cmd := &cobra.Command{
		Use:   "add <id> <file-or-url>...",
		Short: "Place files or URLs on a board",
		Long: `Place files or URLs on a board. Files become image, PDF, markdown, code,
audio or video items by extension; YouTube URLs become video embeds and any
other URL a link card. Items are laid out left to right from --x,--y.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(ctx) }()
			s, err := a.Open(ctx, args[0])
			if err != nil {
				return err
			}
			pos := vector.Pt{X: x, Y: y}
			for _, src := range args[1:] {
				var err error
				if strings.Contains(src, "://") {
					_, err = s.AddURL(src, pos)
				} else {
					var ok bool
					if _, ok, err = s.AddFile(src, pos); !ok {
						warning(cmd.ErrOrStderr(), "Skipped %s: unsupported file type", src)
						continue
					}
				}
				if err != nil {
					return fmt.Errorf("%s: %w", src, err)
				}
				sel := s.Selection()
				if it, ok := s.Board.Item(sel[len(sel)-1]); ok {
					pos.X += it.Size.W + 20
				}
				success(cmd.OutOrStdout(), "Added %s", src)
			}
			return a.Close(ctx, s.ID())
		},
	}
	cmd.Flags().Float32Var(&x, "x", 0, "canvas x of the first item")
	cmd.Flags().Float32Var(&y, "y", 0, "canvas y of the first item")
	return cmd
}
