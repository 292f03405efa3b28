package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/PartsHole/internal/app"
	"github.com/JonMunkholm/PartsHole/internal/config"
	"github.com/JonMunkholm/PartsHole/internal/core"
	"github.com/JonMunkholm/PartsHole/internal/logging"
)

// skipApp marks commands that run without a store.
const skipApp = "skip-app"

// cli is the state shared by every subcommand of one invocation.
type cli struct {
	configFile string
	envFile    string
	strict     bool

	cfg *config.Config
	app *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "partshole",
		Short:         "Import DigiKey and Mouser invoices and allocate part numbers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", os.Getenv(config.FileEnv), "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		newImportCmd(c),
		newSweepCmd(c),
		newAllocateCmd(c),
		newParseCmd(),
		newUserCmd(c),
		newLinkCmd(c, "link"),
		newLinkCmd(c, "unlink"),
	)
	return root
}

// open loads configuration, installs the logger and opens the store.
func (c *cli) open(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.LoadFile(c.configFile)
	if err != nil {
		return err
	}
	if c.strict {
		cfg.Upload.IgnoreLineErrors = false
	}
	c.cfg = cfg

	// stdout carries command output
	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	if cmd.Annotations[skipApp] != "" {
		return nil
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.app = a
	slog.Debug("store opened", "driver", cfg.Store.Driver)
	return nil
}

func (c *cli) service() *core.Service {
	return c.app.Service
}

// printJSON writes v indented, for commands that show records.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// userError renders err the way the API would show it.
func userError(err error) error {
	if core.IsUserFacing(err) {
		return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
	}
	return err
}
