package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	gostatement "github.com/statementexec/gostatement"
)

type cmdToken struct {
	global *cmdGlobal
}

// Command generates the command definition.
func (c *cmdToken) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "token"
	cmd.Short = "Manage access tokens in the OS keyring"
	cmd.Long = `Description:
  Manage access tokens in the OS keyring

  Connections with auth_type = "keyring" read their token from here.
`

	// set sub-command.
	setCmd := cmdTokenSet{global: c.global}
	cmd.AddCommand(setCmd.Command())

	// delete sub-command.
	deleteCmd := cmdTokenDelete{global: c.global}
	cmd.AddCommand(deleteCmd.Command())

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Usage() }
	return cmd
}

type cmdTokenSet struct {
	global *cmdGlobal
}

// Command generates the command definition.
func (c *cmdTokenSet) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "set <host> [<warehouse>]"
	cmd.Short = "Store a token read from stdin"
	cmd.RunE = c.Run

	return cmd
}

// Run runs the actual command logic.
func (c *cmdTokenSet) Run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := c.global.CheckArgs(cmd, args, 1, 2)
	if exit {
		return err
	}

	warehouse := ""
	if len(args) > 1 {
		warehouse = args[1]
	}

	fmt.Fprint(os.Stderr, "Token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("Failed to read the token: %w", err)
	}

	token := strings.TrimSpace(line)
	if token == "" {
		return fmt.Errorf("Empty token")
	}

	return gostatement.StoreTokenInKeyring(args[0], warehouse, token)
}

type cmdTokenDelete struct {
	global *cmdGlobal
}

// Command generates the command definition.
func (c *cmdTokenDelete) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "delete <host> [<warehouse>]"
	cmd.Short = "Remove a stored token"
	cmd.RunE = c.Run

	return cmd
}

// Run runs the actual command logic.
func (c *cmdTokenDelete) Run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := c.global.CheckArgs(cmd, args, 1, 2)
	if exit {
		return err
	}

	warehouse := ""
	if len(args) > 1 {
		warehouse = args[1]
	}

	return gostatement.DeleteTokenFromKeyring(args[0], warehouse)
}
