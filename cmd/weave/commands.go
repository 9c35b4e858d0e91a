package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glimte/weave-go/aspects/dirty"
	"github.com/glimte/weave-go/config"
	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/diagnostics"
	"github.com/glimte/weave-go/interceptors"
)

// globalOptions are the flags shared by every command
type globalOptions struct {
	configPath string
	sinkKind   string
	amqpURL    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "weave",
		Short: "Run operations through advice chains",
		Long: `weave wraps operations with advice chains (logging, retry, circuit breaker, deadline)
configured from a YAML file, and inspects types for dirty-tracking contract violations.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "weave.yaml", "Chain configuration file")
	rootCmd.PersistentFlags().StringVarP(&opts.sinkKind, "sink", "s", "", "Log sink: stdout, stderr, slog, zap or amqp (overrides the config file)")
	rootCmd.PersistentFlags().StringVarP(&opts.amqpURL, "amqp-url", "u", "", "RabbitMQ connection URL for the amqp sink")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(newDemoCmd(opts), newInspectCmd(opts), newCheckCmd(opts))
	return rootCmd
}

// load reads the configuration and applies flag overrides
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.sinkKind != "" {
		cfg.Sink.Kind = o.sinkKind
	}
	if o.amqpURL != "" {
		cfg.Sink.URL = o.amqpURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSink opens the configured sink; console sinks write to the command's output
func openSink(cfg *config.Config, out io.Writer, logger *slog.Logger) (contracts.Sink, func() error, error) {
	if cfg.Sink.Kind == "" || cfg.Sink.Kind == "stdout" {
		sink, _ := cfg.WriterSink(out)
		return sink, func() error { return nil }, nil
	}
	return cfg.OpenSink(logger)
}

func newDemoCmd(opts *globalOptions) *cobra.Command {
	var (
		failures int
		sku      string
		quantity int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Reserve stock through a flaky operation wrapped with the configured chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger := opts.logger(cmd.ErrOrStderr())
			sink, closeSink, err := openSink(cfg, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeSink(); err != nil {
					logger.Warn("failed to close sink", "error", err)
				}
			}()

			warehouse := newWarehouse(failures)
			reserve, err := interceptors.Build(reserveOperation, warehouse.reserve,
				cfg.ChainBuilder(sink, logger).Build(),
				interceptors.WithLogger(logger),
			)
			if err != nil {
				return fmt.Errorf("failed to build chain: %w", err)
			}

			id, err := reserve.Invoke(ctx, sku, quantity)
			if err != nil {
				return fmt.Errorf("reservation failed after %d calls: %w", warehouse.calls, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reservation %s confirmed after %d calls\n", id, warehouse.calls)
			return nil
		},
	}

	cmd.Flags().IntVarP(&failures, "failures", "f", 2, "Number of calls that fail before the warehouse answers")
	cmd.Flags().StringVar(&sku, "sku", "SKU-1", "Stock keeping unit to reserve")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Quantity to reserve")
	return cmd
}

func newInspectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the resolved configuration and advice chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(out, string(data))

			chain := cfg.ChainBuilder(contracts.NopSink, opts.logger(cmd.ErrOrStderr())).Build()
			printChain(out, chain)
			return nil
		},
	}
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the sample models for dirty-tracking contract violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			collector := diagnostics.NewCollector()
			reporter := diagnostics.Fanout{
				collector,
				diagnostics.NewSinkReporter(contracts.SinkFunc(func(line string) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				})),
			}

			for _, model := range sampleModels {
				dirty.Inspect(reflect.TypeOf(model), reporter)
			}

			if collector.HasErrors() {
				return fmt.Errorf("%d dirty-tracking errors found", collector.Count(contracts.SeverityError))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No issues found")
			return nil
		},
	}
}

func printChain(w io.Writer, chain *interceptors.Chain) {
	if chain.Len() == 0 {
		fmt.Fprintln(w, "No advice configured")
		return
	}

	fmt.Fprintf(w, "%-4s %-25s %s\n", "#", "Advice", "Hooks")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for i, advice := range chain.Advice() {
		fmt.Fprintf(w, "%-4d %-25s %s\n", i+1, advice.Name(), strings.Join(hooks(advice), ", "))
	}
}

func hooks(advice interceptors.Advice) []string {
	var h []string
	if _, ok := advice.(interceptors.BeforeAdvice); ok {
		h = append(h, "before")
	}
	if _, ok := advice.(interceptors.AroundAdvice); ok {
		h = append(h, "around")
	}
	if _, ok := advice.(interceptors.AfterAdvice); ok {
		h = append(h, "after")
	}
	if _, ok := advice.(interceptors.ExceptionAdvice); ok {
		h = append(h, "exception")
	}
	return h
}

var errWarehouseBusy = errors.New("warehouse is busy")

var reserveOperation = contracts.NewOperation("Warehouse.Reserve",
	contracts.Param("sku", "string"),
	contracts.Param("quantity", "int"),
).Returning("string")

// warehouse is a sample remote service that fails its first calls
type warehouse struct {
	failures int
	calls    int
}

func newWarehouse(failures int) *warehouse {
	return &warehouse{failures: failures}
}

func (w *warehouse) reserve(ctx context.Context, args *interceptors.Arguments) (string, error) {
	w.calls++
	if w.calls <= w.failures {
		return "", errWarehouseBusy
	}
	return fmt.Sprintf("R-%s-%d", interceptors.Arg[string](args, 0), interceptors.Arg[int](args, 1)), nil
}

// sample models checked by the check command
type cart struct {
	dirty.Tracker
	Items int
}

type legacyCart struct {
	state dirty.State
	Items int
}

func (c legacyCart) DirtyState() dirty.State { return c.state }

func (c legacyCart) SetDirtyState(state dirty.State) { c.state = state }

var sampleModels = []interface{}{&cart{}, legacyCart{}}
