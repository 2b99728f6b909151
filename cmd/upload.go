// =============================================================================
// SSN ETL - Upload Command
// =============================================================================
//
// COMMAND USAGE:
//   etl-ssn upload weekly  [data_file] [--confirm-week | --fix-week W |
//                          --query-week W | --empty-week W] [--test]
//   etl-ssn upload monthly [data_file] [--confirm-month | --fix-month M |
//                          --query-month M | --empty-month M] [--test]
//
// MODES:
//   (default)  submit data_file
//   --confirm  submit data_file, confirm it, move it to processed/<kind>/
//   --fix      request a correction of a confirmed cycle
//   --query    print the regulator status of a cycle
//   --empty    submit a cycle without records
//   --test     check the TLS connection to the server
//
// Every call but the login is retried up to `retries` times.
//
// =============================================================================

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spazos-ar/etl-ssn/internal/config"
	"github.com/spazos-ar/etl-ssn/internal/delivery"
	"github.com/spazos-ar/etl-ssn/internal/ssn"
	"github.com/spazos-ar/etl-ssn/internal/types"
	"github.com/spazos-ar/etl-ssn/internal/validation"
	"github.com/spazos-ar/etl-ssn/pkg/utils"
)

// =============================================================================
// UPLOAD OPTIONS
// =============================================================================

type uploadMode int

const (
	modeSubmit uploadMode = iota
	modeFix
	modeQuery
	modeEmpty
	modeTest
)

// uploadOptions holds the arguments of one upload run.
type uploadOptions struct {
	kind     types.DeliveryKind
	dataFile string
	confirm  bool
	fix      string
	query    string
	empty    string
	test     bool
}

var (
	weeklyOpts  = uploadOptions{kind: types.Weekly}
	monthlyOpts = uploadOptions{kind: types.Monthly}
)

func (o uploadOptions) suffix() string {
	if o.kind == types.Monthly {
		return "month"
	}
	return "week"
}

func (o uploadOptions) mode() uploadMode {
	switch {
	case o.test:
		return modeTest
	case o.fix != "":
		return modeFix
	case o.query != "":
		return modeQuery
	case o.empty != "":
		return modeEmpty
	default:
		return modeSubmit
	}
}

// cycle returns the cycle given to --fix, --query or --empty.
func (o uploadOptions) cycle() string {
	switch o.mode() {
	case modeFix:
		return o.fix
	case modeQuery:
		return o.query
	case modeEmpty:
		return o.empty
	default:
		return ""
	}
}

// validate checks the flag combination before anything is loaded.
func (o uploadOptions) validate() error {
	modes := []struct {
		flag string
		set  bool
	}{
		{"--confirm-" + o.suffix(), o.confirm},
		{"--fix-" + o.suffix(), o.fix != ""},
		{"--query-" + o.suffix(), o.query != ""},
		{"--empty-" + o.suffix(), o.empty != ""},
		{"--test", o.test},
	}
	var set []string
	for _, m := range modes {
		if m.set {
			set = append(set, m.flag)
		}
	}
	if len(set) > 1 {
		return fmt.Errorf("flags %s cannot be used together", strings.Join(set, ", "))
	}

	switch o.mode() {
	case modeTest:
		if o.dataFile != "" {
			return fmt.Errorf("data_file must not be given with --test")
		}
	case modeFix, modeQuery, modeEmpty:
		if o.dataFile != "" {
			return fmt.Errorf("data_file must not be given with --fix-%[1]s, --query-%[1]s or --empty-%[1]s", o.suffix())
		}
		return validation.ValidateCycle(o.cycle(), o.kind)
	default:
		if o.dataFile == "" {
			return fmt.Errorf("data_file is required unless --test, --fix-%[1]s, --query-%[1]s or --empty-%[1]s is given", o.suffix())
		}
	}
	return nil
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Send delivery documents to the SSN",
}

var uploadWeeklyCmd = &cobra.Command{
	Use:   "weekly [data_file]",
	Short: "Submit, confirm, correct or query a weekly delivery",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return upload(cmd, args, weeklyOpts)
	},
}

var uploadMonthlyCmd = &cobra.Command{
	Use:   "monthly [data_file]",
	Short: "Submit, confirm, correct or query a monthly delivery",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return upload(cmd, args, monthlyOpts)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.AddCommand(uploadWeeklyCmd, uploadMonthlyCmd)

	registerUploadFlags(uploadWeeklyCmd, &weeklyOpts, "YYYY-WW")
	registerUploadFlags(uploadMonthlyCmd, &monthlyOpts, "YYYY-MM")
}

func registerUploadFlags(cmd *cobra.Command, o *uploadOptions, layout string) {
	s := o.suffix()
	flags := cmd.Flags()
	flags.BoolVar(&o.confirm, "confirm-"+s, false, "Confirm the delivery and move data_file to processed/")
	flags.StringVar(&o.fix, "fix-"+s, "", "Request a correction of the "+s+" ("+layout+")")
	flags.StringVar(&o.query, "query-"+s, "", "Print the status of the "+s+" ("+layout+")")
	flags.StringVar(&o.empty, "empty-"+s, "", "Submit the "+s+" without records ("+layout+")")
	flags.BoolVar(&o.test, "test", false, "Check the TLS connection to the server")
}

func upload(cmd *cobra.Command, args []string, opts uploadOptions) error {
	if len(args) == 1 {
		opts.dataFile = args[0]
	}
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var creds config.Credentials
	if opts.mode() != modeTest {
		if creds, err = cfg.LoadCredentials(); err != nil {
			return err
		}
	}

	return runUpload(cmd.Context(), cfg, creds, opts, cmd.OutOrStdout(), ssn.WithLogger(logger))
}

// =============================================================================
// UPLOAD RUN
// =============================================================================

type stateLine struct {
	Type  string `json:"type"`
	Value struct {
		LastSent string `json:"last_sent"`
	} `json:"value"`
}

// runUpload performs one upload run through a single session.
func runUpload(ctx context.Context, cfg *config.Config, creds config.Credentials, opts uploadOptions, out io.Writer, sessionOpts ...ssn.Option) error {
	session, err := ssn.NewSession(cfg, creds, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	if opts.mode() == modeTest {
		if err := session.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "TLS connection to %s OK\n", cfg.BaseURL)
		return nil
	}

	session.Announce(out, opts.kind)
	if _, err := session.Authenticate(ctx); err != nil {
		return err
	}

	policy := session.RetryPolicy()
	retry := func(op string, fn func(context.Context) error) error {
		_, err := ssn.Retry(ctx, policy, op, fn)
		return err
	}

	switch opts.mode() {
	case modeQuery:
		var doc json.RawMessage
		err := retry("query", func(ctx context.Context) error {
			var err error
			doc, err = session.Query(ctx, opts.kind, opts.query)
			return err
		})
		if err != nil {
			return err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, doc, "", "  "); err != nil {
			return fmt.Errorf("failed to format status: %w", err)
		}
		fmt.Fprintln(out, pretty.String())

	case modeFix:
		if err := retry("correct", func(ctx context.Context) error {
			return session.Correct(ctx, opts.kind, opts.fix)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Correction requested for %s %s\n", opts.kind.Tag(), opts.fix)

	case modeEmpty:
		p := delivery.EmitEmpty(creds.Company, opts.empty, opts.kind)
		if err := retry("submit", func(ctx context.Context) error {
			return session.Submit(ctx, p)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Empty %s delivery %s sent\n", opts.kind.Tag(), opts.empty)

	default:
		return submit(ctx, session, retry, opts, out)
	}
	return nil
}

func submit(ctx context.Context, session *ssn.Session, retry func(string, func(context.Context) error) error, opts uploadOptions, out io.Writer) error {
	p, err := delivery.LoadPayload(opts.dataFile, opts.kind)
	if err != nil {
		return err
	}

	if err := retry("submit", func(ctx context.Context) error {
		return session.Submit(ctx, p)
	}); err != nil {
		return err
	}

	var state stateLine
	state.Type = "STATE"
	state.Value.LastSent = p.Cycle
	line, err := json.Marshal(state)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(line))

	if !opts.confirm {
		return nil
	}

	if err := retry("confirm", func(ctx context.Context) error {
		return session.Confirm(ctx, opts.kind, p.Cycle)
	}); err != nil {
		return err
	}

	archived, err := utils.Archive(opts.dataFile, opts.kind)
	if err != nil {
		return fmt.Errorf("delivery confirmed but the file could not be archived: %w", err)
	}
	slog.InfoContext(ctx, "delivery archived", "file", archived)
	fmt.Fprintf(out, "%s delivery %s confirmed; file moved to %s\n", opts.kind.Tag(), p.Cycle, archived)
	return nil
}
