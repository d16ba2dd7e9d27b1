/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package commands implements the moodboard command line.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moodboard/internal/app"
	"moodboard/internal/config"
	applog "moodboard/internal/log"
	"moodboard/internal/version"
)

// loadConfig is swapped in tests so no keyring or user config is touched.
var loadConfig = func(path string) (config.AppConfig, config.Secrets, error) {
	if path != "" {
		if err := os.Setenv(config.EnvConfigPath, path); err != nil {
			return config.Defaults(), config.Secrets{}, err
		}
	}
	return config.Load()
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dataDir    string

	cfg config.AppConfig
	sec config.Secrets
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "moodboard",
		Short: "Moodboard - infinite canvas for collecting references",
		Long: `Moodboard keeps boards of images, documents, links, notes and shapes.

Boards are saved automatically a moment after each edit. The command line
manages the board index and inspects saved boards; "moodboard ui" opens the
desktop editor.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, sec, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			if g.dataDir != "" {
				cfg.Storage.DataDir = g.dataDir
			}
			applog.Init(applog.Options{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				AddSource: cfg.Logging.Source,
				File:      cfg.Logging.File,
			})
			g.cfg, g.sec = cfg, sec
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is the per-user config.yaml)")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "directory holding boards and the board index")

	root.AddCommand(
		newVersionCmd(),
		newBoardsCmd(g),
		newShowCmd(g),
		newAddCmd(g),
		newWatchCmd(g),
		newUICmd(g),
	)
	return root
}

// Execute runs the command line and prints errors to stderr.
// Interrupts cancel the command context so running commands can save and exit.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		failure(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

// openApp builds the application for one command. The caller must Shutdown it.
func (g *globals) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.Options{Config: g.cfg, Secrets: g.sec})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Moodboard", version.String())
		},
	}
}
