/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"moodboard/internal/storage"
)

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print board ids as they are saved (redis backend only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(ctx) }()
			rs, ok := a.Store().(*storage.RedisStore)
			if !ok {
				return errors.New("watch needs the redis storage backend")
			}
			saved, err := rs.SubscribeSaved(ctx)
			if err != nil {
				return err
			}
			info(cmd.ErrOrStderr(), "Watching %s", rs.SavedChannel())
			for id := range saved {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
