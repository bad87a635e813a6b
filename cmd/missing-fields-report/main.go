package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/audit"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/collector"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/config"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/mail"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/render"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/server"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/store"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "missing-fields-report",
		Short: "Audit incident documentation completeness across incident.io and FireHydrant",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newInitDBCmd())
	root.AddCommand(newCheckCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type runFlags struct {
	configPath   string
	lookbackDays int
	start        string
	end          string
	out          string
	noEmail      bool
	noStore      bool
	dryRun       bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch incidents, classify missing documentation and distribute the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			return runAudit(ctx, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "JSON config file merged over the defaults")
	cmd.Flags().IntVar(&flags.lookbackDays, "lookback-days", 0, "override the configured lookback window")
	cmd.Flags().StringVar(&flags.start, "start", "", "window start date override (YYYY-MM-DD, with --end)")
	cmd.Flags().StringVar(&flags.end, "end", "", "window end date override (YYYY-MM-DD, with --start)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "table", "stdout format: table or json")
	cmd.Flags().BoolVar(&flags.noEmail, "no-email", false, "skip the email even when configured")
	cmd.Flags().BoolVar(&flags.noStore, "no-store", false, "skip persisting the run")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "render to stdout only; no store, no email")

	return cmd
}

func runAudit(ctx context.Context, flags runFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.lookbackDays > 0 {
		cfg.LookbackDays = flags.lookbackDays
	}
	if flags.start != "" || flags.end != "" {
		cfg.CustomStartDate = flags.start
		cfg.CustomEndDate = flags.end
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sources, err := cfg.Sources()
	if err != nil {
		return err
	}

	// Captured once; every age computation in the run uses this value.
	now := time.Now().UTC()

	params, err := cfg.AuditParams(now)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Fetching incidents for %d business units (window %s to %s)...\n",
		len(sources),
		params.Criteria.WindowStart.Format("2006-01-02"),
		params.Criteria.WindowEnd.Format("2006-01-02"),
	)
	batches, err := collector.Collect(ctx, sources, params.Criteria.WindowStart)
	if err != nil {
		return err
	}

	report, skips, err := audit.Run(batches, params, now)
	if err != nil {
		return err
	}
	for _, skip := range skips {
		fmt.Fprintf(os.Stderr, "Skipped %s/%s %s: %s\n", skip.Unit, skip.Platform, skip.Reference, skip.Reason)
	}
	fmt.Fprintf(os.Stderr, "Fetched %d, normalized %d, filtered %d, flagged %d\n",
		report.Summary.Fetched, report.Summary.Normalized, report.Summary.Filtered, report.Summary.Classified)

	if err := render.New(render.Format(flags.out)).Render(os.Stdout, report); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if flags.dryRun {
		return nil
	}

	if !flags.noStore {
		runID, err := persistRun(ctx, report)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report persisted as run %s\n", runID)
	}

	if cfg.Email.Enabled && !flags.noEmail {
		if err := sendEmail(cfg, report); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report emailed to %d recipients\n", len(cfg.Email.To))
	}
	return nil
}

func persistRun(ctx context.Context, report model.Report) (string, error) {
	url := store.URLFromEnv()
	if url == "" {
		return "", fmt.Errorf("no database URL configured (set DATABASE_URL or pass --no-store)")
	}
	st, err := store.Open(ctx, url, os.Getenv("MISSING_FIELDS_REPORT_DB_SCHEMA"))
	if err != nil {
		return "", err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return "", err
	}
	return st.SaveRun(ctx, report)
}

func sendEmail(cfg config.Config, report model.Report) error {
	subject, body, err := render.Email(report, render.EmailOptions{
		SubjectPrefix: cfg.Email.SubjectPrefix,
		ReportURL:     cfg.Email.ReportURL,
		FocusDays:     cfg.EmailFocusDays,
	})
	if err != nil {
		return err
	}
	return mail.FromEnv().Send(cfg.Email.From, cfg.Email.To, subject, body)
}

func newServeCmd() *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the persisted reports over a read-only HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ServeAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			url := store.URLFromEnv()
			if url == "" {
				return fmt.Errorf("no database URL configured (set DATABASE_URL)")
			}
			st, err := store.Open(ctx, url, os.Getenv("MISSING_FIELDS_REPORT_DB_SCHEMA"))
			if err != nil {
				return err
			}
			defer st.Close()

			fmt.Fprintf(os.Stderr, "Serving report API on %s\n", addr)
			return server.New(st).Run(addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON config file merged over the defaults")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the report schema and tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			url := store.URLFromEnv()
			if url == "" {
				return fmt.Errorf("no database URL configured (set DATABASE_URL)")
			}
			st, err := store.Open(ctx, url, os.Getenv("MISSING_FIELDS_REPORT_DB_SCHEMA"))
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.EnsureSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Schema ready")
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the effective values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("print config: %w", err)
			}
			fmt.Fprintln(os.Stderr, "Config OK")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON config file merged over the defaults")

	return cmd
}
