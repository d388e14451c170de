package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	gostatement "github.com/statementexec/gostatement"
)

type cmdUpload struct {
	global *cmdGlobal
	exec   executeFlags

	flagName       string
	flagRegion     string
	flagEndpoint   string
	flagPathStyle  bool
	flagGCSKey     string
	flagExpiry     time.Duration
	flagForceMerge bool
}

// Command generates the command definition.
func (c *cmdUpload) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "upload <query> <destination>"
	cmd.Short = "Execute a statement and upload its merged result"
	cmd.Long = `Description:
  Execute a statement and upload its merged result to object storage

  The destination is one of:
    s3://<bucket>/<prefix>
    gs://<bucket>/<prefix>
    https://<account>.blob.core.windows.net/<container>?<sas>
    a local directory

  The statement result is printed with its payload replaced by a single
  link to the uploaded object. S3 credentials are read from
  AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
`
	cmd.RunE = c.Run
	c.exec.register(cmd, string(gostatement.DispositionExternalLinks), string(gostatement.FormatJSONArray))
	cmd.Flags().StringVar(&c.flagName, "name", "", "Object name, defaults to the statement id"+"``")
	cmd.Flags().StringVar(&c.flagRegion, "region", os.Getenv("AWS_REGION"), "S3 region"+"``")
	cmd.Flags().StringVar(&c.flagEndpoint, "endpoint", "", "S3 or GCS endpoint override"+"``")
	cmd.Flags().BoolVar(&c.flagPathStyle, "path-style", false, "Use S3 path style addressing")
	cmd.Flags().StringVar(&c.flagGCSKey, "gcs-credentials", "", "GCS service account key file"+"``")
	cmd.Flags().DurationVar(&c.flagExpiry, "expiry", time.Hour, "Lifetime of the returned URL"+"``")
	cmd.Flags().BoolVar(&c.flagForceMerge, "force-merge", false, "Merge even a single external chunk")

	return cmd
}

// uploader picks the storage sink for destination.
func (c *cmdUpload) uploader(ctx context.Context, destination string) (gostatement.Uploader, error) {
	u, err := url.Parse(destination)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		dir := destination
		if err == nil && u.Scheme == "file" {
			dir = u.Path
		}

		return &gostatement.LocalFileUploader{Dir: dir}, nil
	}

	prefix := strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "s3":
		return gostatement.NewS3Uploader(gostatement.S3Config{
			Bucket:          u.Host,
			Prefix:          prefix,
			Region:          c.flagRegion,
			Endpoint:        c.flagEndpoint,
			UsePathStyle:    c.flagPathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			PresignExpiry:   c.flagExpiry,
		}), nil
	case "gs":
		return gostatement.NewGCSUploader(ctx, gostatement.GCSConfig{
			Bucket:          u.Host,
			Prefix:          prefix,
			CredentialsFile: c.flagGCSKey,
			Endpoint:        c.flagEndpoint,
			SignedURLExpiry: c.flagExpiry,
		})
	case "https", "http":
		return gostatement.NewAzureUploader(gostatement.AzureConfig{ContainerSASURL: destination})
	}

	return nil, fmt.Errorf("Unsupported destination %q", destination)
}

// Run runs the actual command logic.
func (c *cmdUpload) Run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := c.global.CheckArgs(cmd, args, 2, 2)
	if exit {
		return err
	}

	client, err := c.global.client()
	if err != nil {
		return err
	}

	ctx, cancel := c.global.context()
	defer cancel()

	uploader, err := c.uploader(ctx, args[1])
	if err != nil {
		return err
	}

	result, err := c.exec.execute(ctx, client, args[0])
	if err != nil {
		return err
	}

	name := c.flagName
	if name == "" {
		name = gostatement.ResultObjectName(result)
	}

	uploaded, err := client.FetchAndUpload(ctx, result, &gostatement.StreamOptions{ForceMerge: c.flagForceMerge}, gostatement.UploadTo(uploader, name))
	if err != nil {
		return err
	}

	return printJSON(uploaded)
}
