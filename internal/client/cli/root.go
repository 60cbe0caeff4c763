package cli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/flagx"
	"github.com/dmitrijs2005/aikea/internal/server/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the bucketctl command tree bound to a.
func (a *App) NewRootCommand() *cobra.Command {
	c := a.config

	root := &cobra.Command{
		Use:           "bucketctl",
		Short:         "Operate the document storage gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.Mode, "mode", c.Mode, "storage mode (remote|local)")
	pf.StringVar(&c.BucketBaseURL, "base-url", c.BucketBaseURL, "bucket base URL (env "+config.EnvBucketBaseURL+")")
	pf.StringVar(&c.BucketToken, "token", c.BucketToken, "bucket bearer token (env "+config.EnvBucketToken+")")
	pf.BoolVar(&a.tokenPrompt, "token-prompt", false, "read the bucket token from the terminal")
	pf.StringVar(&c.CurlPath, "curl", c.CurlPath, "curl binary")
	pf.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "per-attempt timeout")
	pf.DurationVar(&c.ProbeTimeout, "probe-timeout", c.ProbeTimeout, "probe timeout")
	pf.StringVar(&c.DatabaseDSN, "dsn", c.DatabaseDSN, "PostgreSQL DSN (local mode)")
	pf.StringVar(&c.UploadDir, "upload-dir", c.UploadDir, "upload directory (local mode)")
	pf.StringVar(&c.BlobBackend, "blob-backend", c.BlobBackend, "blob backend (disk|s3)")
	pf.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket")
	pf.StringVar(&c.S3BaseEndpoint, "s3-endpoint", c.S3BaseEndpoint, "S3 base endpoint")
	pf.BoolVar(&a.asJSON, "json", false, "print JSON")
	pf.BoolVar(&c.Debug, "debug", false, "verbose logging to stderr")

	root.AddCommand(
		a.listCommand(),
		a.searchCommand(),
		a.getCommand(),
		a.uploadCommand(),
		a.deleteCommand(),
		a.statsCommand(),
		a.diagnoseCommand(),
	)
	return root
}

// prepare applies environment overrides for flags left unset, prompts for
// the token when asked and opens the gateway.
func (a *App) prepare(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if !flags.Changed("base-url") {
		flagx.StringFromEnv(&a.config.BucketBaseURL, config.EnvBucketBaseURL)
	}
	if !flags.Changed("token") {
		flagx.StringFromEnv(&a.config.BucketToken, config.EnvBucketToken)
	}
	if a.tokenPrompt {
		tok, err := GetToken(a.errOut)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		a.config.BucketToken = tok
	}
	if err := a.config.Validate(); err != nil {
		return err
	}
	return a.open(cmd.Context())
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := a.gateway.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return a.printRecords(records)
		},
	}
}

func (a *App) searchCommand() *cobra.Command {
	var pattern, externalID, tag1, tag2, tag3 string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search by pattern, tags or external id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				records []bucket.StoredFileRecord
				err     error
			)
			switch {
			case externalID != "":
				records, err = a.gateway.SearchByExternalID(ctx, externalID)
			case tag1 != "" || tag2 != "" || tag3 != "":
				records, err = a.gateway.SearchByTags(ctx, tag1, tag2, tag3)
			case pattern != "":
				records, err = a.gateway.SearchByPattern(ctx, pattern)
			default:
				return fmt.Errorf("one of --pattern, --tag1/--tag2/--tag3 or --external-id is required")
			}
			if err != nil {
				return err
			}
			return a.printRecords(records)
		},
	}

	f := cmd.Flags()
	f.StringVar(&pattern, "pattern", "", "case-insensitive match on id, name or external id")
	f.StringVar(&externalID, "external-id", "", "external id substring")
	f.StringVar(&tag1, "tag1", "", "exact tag1")
	f.StringVar(&tag2, "tag2", "", "exact tag2")
	f.StringVar(&tag3, "tag3", "", "exact tag3")
	cmd.MarkFlagsMutuallyExclusive("pattern", "external-id", "tag1")
	cmd.MarkFlagsMutuallyExclusive("pattern", "external-id", "tag2")
	cmd.MarkFlagsMutuallyExclusive("pattern", "external-id", "tag3")
	return cmd
}

func (a *App) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.gateway.FindByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printRecord(rec)
		},
	}
}

func (a *App) uploadCommand() *cobra.Command {
	var in bucket.UploadInput

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			in.Data = data
			if in.FileName == "" {
				in.FileName = filepath.Base(args[0])
			}
			in.ContentType = contentType(args[0], data)

			rec, err := a.gateway.Upload(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printRecord(rec)
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.FileName, "name", "", "stored file name (defaults to the local name)")
	f.StringVar(&in.ExternalID, "external-id", "", "external id (defaults to auto_<millis>)")
	f.StringVar(&in.Tag1, "tag1", "", "tag1")
	f.StringVar(&in.Tag2, "tag2", "", "tag2")
	f.StringVar(&in.Tag3, "tag3", "", "tag3")
	f.StringVar(&in.Description, "description", "", "description")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.gateway.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

// statsCommand lists first: totals come from the last listing and a fresh
// process has none.
func (a *App) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals of a fresh listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.gateway.ListAll(cmd.Context()); err != nil {
				return err
			}
			return a.printStats(a.gateway.Stats())
		},
	}
}

func (a *App) diagnoseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check reachability, filtering and token validity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printDiagnostics(a.gateway.Diagnose(cmd.Context()))
		},
	}
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
