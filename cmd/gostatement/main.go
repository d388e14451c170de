package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	gostatement "github.com/statementexec/gostatement"
)

type cmdGlobal struct {
	flagConnection string
	flagDSN        string
	flagLogLevel   string
	flagTimeout    time.Duration
	flagVersion    bool
	flagHelp       bool
}

func main() {
	app := &cobra.Command{}
	app.Use = "gostatement"
	app.Short = "Run SQL statements against a statement execution service"
	app.Long = `Description:
  Run SQL statements against a statement execution service

  Statements are submitted, polled until they finish and their results are
  printed as rows, streamed as one merged document or uploaded to object
  storage.

  The connection comes from --dsn or from a named connection in
  $GOSTATEMENT_HOME/connections.toml.
`
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	// Global flags.
	globalCmd := cmdGlobal{}
	app.PersistentFlags().StringVarP(&globalCmd.flagConnection, "connection", "c", "", "Named connection from connections.toml"+"``")
	app.PersistentFlags().StringVar(&globalCmd.flagDSN, "dsn", os.Getenv("GOSTATEMENT_DSN"), "Connection string, token:<pat>@host/sql/1.0/warehouses/<id>"+"``")
	app.PersistentFlags().StringVar(&globalCmd.flagLogLevel, "log-level", "", "Log level (trace|debug|info|warn|error|fatal|off)"+"``")
	app.PersistentFlags().DurationVar(&globalCmd.flagTimeout, "timeout", 0, "Abort after this long, 0 waits forever"+"``")
	app.PersistentFlags().BoolVar(&globalCmd.flagVersion, "version", false, "Print version number")
	app.PersistentFlags().BoolVarP(&globalCmd.flagHelp, "help", "h", false, "Print help")

	// Help handling.
	app.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	// Version handling.
	app.SetVersionTemplate("{{.Version}}\n")
	app.Version = gostatement.StatementClientVersion

	// exec sub-command.
	execCmd := cmdExec{global: &globalCmd}
	app.AddCommand(execCmd.Command())

	// rows sub-command.
	rowsCmd := cmdRows{global: &globalCmd}
	app.AddCommand(rowsCmd.Command())

	// stream sub-command.
	streamCmd := cmdStream{global: &globalCmd}
	app.AddCommand(streamCmd.Command())

	// upload sub-command.
	uploadCmd := cmdUpload{global: &globalCmd}
	app.AddCommand(uploadCmd.Command())

	// token sub-command.
	tokenCmd := cmdToken{global: &globalCmd}
	app.AddCommand(tokenCmd.Command())

	// Run the main command and handle errors.
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// CheckArgs validates the number of arguments passed to the function and shows the help if incorrect.
func (c *cmdGlobal) CheckArgs(cmd *cobra.Command, args []string, minArgs int, maxArgs int) (bool, error) {
	if len(args) < minArgs || (maxArgs != -1 && len(args) > maxArgs) {
		_ = cmd.Help()

		if len(args) == 0 {
			return true, nil
		}

		return true, fmt.Errorf("Invalid number of arguments")
	}

	return false, nil
}

// config resolves the connection settings from the flags.
func (c *cmdGlobal) config() (*gostatement.Config, error) {
	var cfg *gostatement.Config
	var err error
	switch {
	case c.flagDSN != "":
		cfg, err = gostatement.ParseDSN(c.flagDSN)
	case c.flagConnection != "":
		cfg, err = gostatement.LoadNamedConnectionConfig(c.flagConnection)
	default:
		cfg, err = gostatement.LoadConnectionConfig()
	}
	if err != nil {
		return nil, err
	}
	if c.flagLogLevel != "" {
		cfg.LogLevel = c.flagLogLevel
	}
	return cfg, nil
}

// client builds a client for the configured connection.
func (c *cmdGlobal) client() (*gostatement.Client, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return gostatement.NewClient(cfg)
}

// context is canceled on interrupt and after --timeout.
func (c *cmdGlobal) context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if c.flagTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, c.flagTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
