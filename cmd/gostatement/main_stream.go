package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	gostatement "github.com/statementexec/gostatement"
)

type cmdStream struct {
	global *cmdGlobal
	exec   executeFlags

	flagOutput     string
	flagForceMerge bool
}

// Command generates the command definition.
func (c *cmdStream) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "stream <query>"
	cmd.Short = "Execute a statement and write its merged result"
	cmd.Long = `Description:
  Execute a statement and write its result as one document

  The result chunks are fetched from their external links and merged in
  order into a single JSON array, CSV file or Arrow IPC stream.
`
	cmd.RunE = c.Run
	c.exec.register(cmd, string(gostatement.DispositionExternalLinks), string(gostatement.FormatJSONArray))
	cmd.Flags().StringVarP(&c.flagOutput, "output", "o", "", "Write to this file instead of stdout"+"``")
	cmd.Flags().BoolVar(&c.flagForceMerge, "force-merge", false, "Merge even a single external chunk")

	return cmd
}

// Run runs the actual command logic.
func (c *cmdStream) Run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := c.global.CheckArgs(cmd, args, 1, 1)
	if exit {
		return err
	}

	client, err := c.global.client()
	if err != nil {
		return err
	}

	ctx, cancel := c.global.context()
	defer cancel()

	result, err := c.exec.execute(ctx, client, args[0])
	if err != nil {
		return err
	}

	stream, err := client.OpenStream(ctx, result, &gostatement.StreamOptions{ForceMerge: c.flagForceMerge})
	if err != nil {
		return err
	}

	defer stream.Close()

	var out io.Writer = os.Stdout
	if c.flagOutput != "" {
		f, err := os.Create(c.flagOutput)
		if err != nil {
			return err
		}

		defer f.Close()
		out = f
	}

	_, err = io.Copy(out, stream)
	return err
}
