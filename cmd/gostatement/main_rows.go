package main

import (
	"bufio"
	"encoding/json"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	gostatement "github.com/statementexec/gostatement"
)

type cmdRows struct {
	global *cmdGlobal
	exec   executeFlags

	flagArray          bool
	flagBigIntAsString bool
	flagForceMerge     bool
}

// Command generates the command definition.
func (c *cmdRows) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "rows <query>"
	cmd.Short = "Execute a statement and print its rows"
	cmd.Long = `Description:
  Execute a statement and print its rows as JSON lines

  Rows are decoded with the result schema unless --array is given. Results
  delivered as external links must use the JSON_ARRAY format.
`
	cmd.RunE = c.Run
	c.exec.register(cmd, string(gostatement.DispositionInline), string(gostatement.FormatJSONArray))
	cmd.Flags().BoolVar(&c.flagArray, "array", false, "Print raw cell arrays")
	cmd.Flags().BoolVar(&c.flagBigIntAsString, "bigint-as-string", false, "Print BIGINT values as strings")
	cmd.Flags().BoolVar(&c.flagForceMerge, "force-merge", false, "Merge even a single external chunk")

	return cmd
}

// Run runs the actual command logic.
func (c *cmdRows) Run(cmd *cobra.Command, args []string) error {
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

	opts := &gostatement.FetchOptions{Stream: gostatement.StreamOptions{ForceMerge: c.flagForceMerge}}
	if c.flagArray {
		opts.RowFormat = gostatement.RowFormatArray
	}
	if c.flagBigIntAsString {
		opts.EncodeBigInt = func(i *big.Int) any { return i.String() }
	}

	out := bufio.NewWriter(os.Stdout)
	enc := json.NewEncoder(out)
	err = client.ForEachRow(ctx, result, opts, func(row any) error {
		return enc.Encode(row)
	})
	if err != nil {
		_ = out.Flush()
		return err
	}

	return out.Flush()
}
