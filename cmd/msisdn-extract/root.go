package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/core"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
	"github.com/saturnines/msisdn-extractor/pkg/loader"
	"github.com/saturnines/msisdn-extractor/pkg/logger"
	"github.com/saturnines/msisdn-extractor/pkg/output"
)

type options struct {
	configPath   string
	input        string
	column       string
	output       string
	endpoint     string
	keys         []string
	headers      []string
	timeout      float64
	maxRetries   int
	workers      int
	logLevel     string
	logJSON      bool
	envFile      string
	failOnErrors bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "msisdn-extract",
		Short: "Look up MSISDNs against an HTTP API and tabulate selected fields",
		Long: `msisdn-extract reads identifiers from a CSV, TSV or XLSX column, sends one
request per identifier and writes one row per identifier with the values found
at the configured dotted key paths.

Examples:
  msisdn-extract --config job.yaml
  msisdn-extract --input msisdns.csv --endpoint https://api.example.com/search \
      --key individualId --key document.pin --output result.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "job YAML file")
	f.StringVarP(&opts.input, "input", "i", "", "input table (.csv, .tsv, .xlsx)")
	f.StringVar(&opts.column, "column", "", "input column holding the MSISDNs")
	f.StringVarP(&opts.output, "output", "o", "", "output table (.csv, .tsv, .xlsx)")
	f.StringVar(&opts.endpoint, "endpoint", "", "base API endpoint")
	f.StringArrayVarP(&opts.keys, "key", "k", nil, "dotted key path to extract (repeatable)")
	f.StringArrayVar(&opts.headers, "header", nil, "extra request header K=V (repeatable)")
	f.Float64Var(&opts.timeout, "timeout", config.DefaultTimeoutSeconds, "per-request timeout in seconds")
	f.IntVar(&opts.maxRetries, "max-retries", config.DefaultMaxRetries, "retries after the first attempt")
	f.IntVarP(&opts.workers, "workers", "w", 1, "identifiers processed concurrently")
	f.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	f.BoolVar(&opts.logJSON, "log-json", false, "JSON log lines")
	f.StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default .env if present)")
	f.BoolVar(&opts.failOnErrors, "fail-on-errors", false, "exit 2 when any identifier failed")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	if err := loadEnv(opts.envFile); err != nil {
		return err
	}

	log, err := logger.New(logger.Options{Level: opts.logLevel, JSON: opts.logJSON, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.With(zap.String("run_id", uuid.NewString()))

	jobs := config.NewDefaultLoader()
	job := &config.Job{}
	if opts.configPath != "" {
		if job, err = jobs.Decode(opts.configPath); err != nil {
			return err
		}
	}
	if err := applyOverrides(job, opts, cmd.Flags().Changed); err != nil {
		return err
	}
	if err := jobs.Finalize(job); err != nil {
		return err
	}
	if job.Name != "" {
		log = log.With(zap.String("job", job.Name))
	}

	in, err := loader.Load(job.Input, log)
	if err != nil {
		return err
	}

	connector, err := core.NewConnector(job, core.WithLogger(log))
	if err != nil {
		return err
	}

	results := connector.Run(ctx, in.MSISDNs)

	path, err := output.Write(job.Output, connector.Keys(), results)
	if err != nil {
		return err
	}
	log.Info("results written", zap.String("file", path), zap.Int("rows", len(results)))

	s := results.Summary()
	printSummary(cmd, path, s)

	if opts.failOnErrors && s.Failed() > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%d of %d identifiers failed", s.Failed(), s.Total)}
	}
	return nil
}

// loadEnv loads path, or .env when path is empty and the file exists
func loadEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.WrapError(err, errors.ErrConfiguration, "load .env")
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.WrapError(err, errors.ErrConfiguration, "load env file")
	}
	return nil
}

// applyOverrides copies flags onto job. changed reports whether a flag was set
// explicitly, so flag defaults never clobber file values.
func applyOverrides(job *config.Job, opts *options, changed func(string) bool) error {
	if opts.input != "" {
		job.Input.File = opts.input
	}
	if opts.column != "" {
		job.Input.MSISDNColumn = opts.column
	}
	if opts.output != "" {
		job.Output.File = opts.output
	}
	if opts.endpoint != "" {
		job.Source.Endpoint = opts.endpoint
	}
	if len(opts.keys) > 0 {
		job.Extract.Keys = append([]string(nil), opts.keys...)
	}

	if len(opts.headers) > 0 {
		headers, err := parseHeaders(opts.headers)
		if err != nil {
			return err
		}
		if job.Source.Headers == nil {
			job.Source.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			job.Source.Headers[k] = v
		}
	}

	if changed("timeout") {
		job.Source.TimeoutSeconds = opts.timeout
	}
	if changed("max-retries") {
		n := opts.maxRetries
		job.Source.Retry.MaxRetries = &n
	}
	if changed("workers") {
		job.Workers = opts.workers
	}

	// flag-only runs fall back to the conventional column name
	if job.Input.MSISDNColumn == "" && opts.configPath == "" {
		job.Input.MSISDNColumn = config.DefaultIdentifierColumn
	}
	return nil
}

func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.WithHint(
				errors.WrapError(fmt.Errorf("invalid header %q", p), errors.ErrConfiguration, "--header"),
				"use --header Name=Value",
			)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}

func printSummary(cmd *cobra.Command, path string, s core.Summary) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Processed %d MSISDNs: %d success, %d request_failed, %d malformed_response\n",
		s.Total, s.Success, s.RequestFailed, s.MalformedResponse)

	keys := make([]string, 0, len(s.Misses))
	for k := range s.Misses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: not found in %d rows\n", k, s.Misses[k])
	}
	fmt.Fprintf(w, "Results saved to %s\n", path)
}
