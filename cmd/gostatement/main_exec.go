package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	gostatement "github.com/statementexec/gostatement"
)

// executeFlags are shared by every sub-command that runs a statement.
type executeFlags struct {
	flagWarehouse   string
	flagCatalog     string
	flagSchema      string
	flagDisposition string
	flagFormat      string
	flagRowLimit    int64
	flagWaitTimeout time.Duration
	flagMetrics     bool
	flagQuiet       bool
	flagParams      []string
}

func (f *executeFlags) register(cmd *cobra.Command, disposition string, format string) {
	cmd.Flags().StringVarP(&f.flagWarehouse, "warehouse", "w", "", "Warehouse id, overrides the connection"+"``")
	cmd.Flags().StringVar(&f.flagCatalog, "catalog", "", "Default catalog"+"``")
	cmd.Flags().StringVar(&f.flagSchema, "schema", "", "Default schema"+"``")
	cmd.Flags().StringVar(&f.flagDisposition, "disposition", disposition, "Result disposition (INLINE|EXTERNAL_LINKS)"+"``")
	cmd.Flags().StringVarP(&f.flagFormat, "format", "f", format, "Result format (JSON_ARRAY|CSV|ARROW_STREAM)"+"``")
	cmd.Flags().Int64Var(&f.flagRowLimit, "limit", 0, "Maximum number of rows"+"``")
	cmd.Flags().DurationVar(&f.flagWaitTimeout, "wait-timeout", 0, "Server side wait on submit, 5s to 50s"+"``")
	cmd.Flags().BoolVar(&f.flagMetrics, "metrics", false, "Report query metrics while polling")
	cmd.Flags().BoolVarP(&f.flagQuiet, "quiet", "q", false, "Do not report progress")
	cmd.Flags().StringArrayVarP(&f.flagParams, "param", "p", nil, "Named parameter as name=value, may be repeated"+"``")
}

func (f *executeFlags) options() (*gostatement.ExecuteOptions, error) {
	opts := &gostatement.ExecuteOptions{
		WarehouseID:    f.flagWarehouse,
		Catalog:        f.flagCatalog,
		Schema:         f.flagSchema,
		Disposition:    gostatement.Disposition(strings.ToUpper(f.flagDisposition)),
		Format:         gostatement.Format(strings.ToUpper(f.flagFormat)),
		RowLimit:       f.flagRowLimit,
		WaitTimeout:    f.flagWaitTimeout,
		IncludeMetrics: f.flagMetrics,
	}
	for _, param := range f.flagParams {
		name, value, ok := strings.Cut(param, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("Invalid parameter %q, expected name=value", param)
		}
		opts.Parameters = append(opts.Parameters, gostatement.StatementParameter{Name: name, Value: &value})
	}
	if !f.flagQuiet {
		opts.OnProgress = printProgress
	}
	return opts, nil
}

func printProgress(event gostatement.ProgressEvent) {
	line := fmt.Sprintf("%v: %v (poll %v)", event.StatementID, event.State, event.Poll)
	if event.Metrics != nil {
		line += fmt.Sprintf(", %vms, %v rows read", event.Metrics.TotalTimeMs, event.Metrics.ReadRows)
	} else if event.MetricsUnavailable {
		line += ", metrics unavailable"
	}
	fmt.Fprintln(os.Stderr, line)
}

// execute runs query to completion.
func (f *executeFlags) execute(ctx context.Context, client *gostatement.Client, query string) (*gostatement.StatementResult, error) {
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	return client.Execute(ctx, query, opts)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type cmdExec struct {
	global *cmdGlobal
	exec   executeFlags
}

// Command generates the command definition.
func (c *cmdExec) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "exec <query>"
	cmd.Short = "Execute a statement and print its result"
	cmd.Long = `Description:
  Execute a statement and print the final statement result as JSON

  The statement is polled until it reaches a terminal state. Interrupting
  the command cancels the statement on the service.
`
	cmd.RunE = c.Run
	c.exec.register(cmd, string(gostatement.DispositionInline), string(gostatement.FormatJSONArray))

	return cmd
}

// Run runs the actual command logic.
func (c *cmdExec) Run(cmd *cobra.Command, args []string) error {
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

	return printJSON(result)
}
