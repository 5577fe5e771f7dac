package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/specialistvlad/labbench/internal/app"
	"github.com/specialistvlad/labbench/internal/chart"
	"github.com/specialistvlad/labbench/internal/loadgen"
	"github.com/spf13/cobra"
)

// Usage errors exit with this code.
const usageExitCode = 2

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Command is the parsed invocation. Exactly one of Load, Plot and Verify is
// set, matching Name.
type Command struct {
	Name   string
	Global *app.Config
	Load   *app.LoadConfig
	Plot   *app.PlotConfig
	Verify *app.VerifyConfig
}

type parser struct {
	logLevel  string
	logFormat string

	parsed *Command
}

// Parse processes command-line arguments. It returns the parsed command, a
// boolean indicating the program should exit cleanly (help was shown), or
// an ExitError.
func Parse(args []string, output io.Writer) (*Command, bool, error) {
	slog.Debug("CLI parser started.")
	p := &parser{}
	root := p.rootCmd()
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		return nil, false, &ExitError{Code: usageExitCode, Message: err.Error()}
	}
	if p.parsed == nil {
		slog.Debug("No command run, exiting.")
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "command", p.parsed.Name)
	return p.parsed, false, nil
}

func (p *parser) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "labbench",
		Short: "Coursework lab bench: album API load generator, latency chart and word-count verifier",
		Long: `labbench bundles the tooling around the album API and MapReduce labs.

  load    drive the album API with weighted virtual users and report latencies
  plot    render stage latencies as a bar chart (latency_bar.png)
  verify  check a word-count result against the source text`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.PersistentFlags().StringVar(&p.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().StringVar(&p.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(p.loadCmd(), p.plotCmd(), p.verifyCmd())
	return root
}

func (p *parser) global() (*app.Config, error) {
	return app.NewConfig(app.Config{LogLevel: p.logLevel, LogFormat: p.logFormat})
}

func (p *parser) loadCmd() *cobra.Command {
	var (
		cfg       app.LoadConfig
		host      string
		users     int
		spawnRate float64
		runTime   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "load [SCENARIO_PATH]",
		Short: "Run a load test against the album API",
		Long: `Run a load test. SCENARIO_PATH is an .hcl file or a directory of .hcl
files; without it the built-in album profile is used (GET /albums three
times as often as POST /albums with a fresh album id). Flags override the
scenario's settings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			global, err := p.global()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.ScenarioPath = args[0]
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = &host
			}
			if flags.Changed("users") {
				cfg.Users = &users
			}
			if flags.Changed("spawn-rate") {
				cfg.SpawnRate = &spawnRate
			}
			if flags.Changed("run-time") {
				cfg.RunTime = &runTime
			}
			load, err := app.NewLoadConfig(cfg)
			if err != nil {
				return err
			}
			p.parsed = &Command{Name: "load", Global: global, Load: load}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&host, "host", "", "Base URL of the target, e.g. http://localhost:8080.")
	f.IntVarP(&users, "users", "u", 0, "Number of concurrent virtual users.")
	f.Float64VarP(&spawnRate, "spawn-rate", "r", 0, "Users started per second.")
	f.DurationVarP(&runTime, "run-time", "t", 0, "Stop after this long, e.g. 30s or 5m. 0 runs until interrupted.")
	f.Int64Var(&cfg.MaxRequests, "max-requests", 0, "Stop after this many requests in total. 0 is unlimited.")
	f.DurationVar(&cfg.RequestTimeout, "request-timeout", loadgen.DefaultRequestTimeout, "Timeout for a single request.")
	f.DurationVar(&cfg.WaitReady, "wait-ready", 0, "Wait up to this long for the target to answer before starting. 0 skips the check.")
	f.StringVar(&cfg.CSVPrefix, "csv", "", "Write <PREFIX>_stats.csv and <PREFIX>_failures.csv.")
	f.StringVar(&cfg.TimingsOut, "timings-out", "", "Write median latency per request name as a timings file for 'plot'.")
	f.IntVar(&cfg.StatusPort, "status-port", 0, "Port for the /health and /stats server. 0 is disabled.")
	f.IntVar(&cfg.ExitCodeOnError, "exit-code-on-error", 1, "Process exit code when any request failed.")
	return cmd
}

func (p *parser) plotCmd() *cobra.Command {
	var cfg app.PlotConfig
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render stage latencies as a bar chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			global, err := p.global()
			if err != nil {
				return err
			}
			plot, err := app.NewPlotConfig(cfg)
			if err != nil {
				return err
			}
			p.parsed = &Command{Name: "plot", Global: global, Plot: plot}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Input, "input", "i", "", "YAML or JSON stage table (name: seconds). Defaults to the recorded MapReduce run.")
	f.StringVarP(&cfg.Out, "out", "o", chart.DefaultOutput, "Output PNG path.")
	f.StringVar(&cfg.Title, "title", chart.DefaultTitle, "Chart title.")
	f.IntVar(&cfg.DPI, "dpi", chart.DefaultDPI, "Image resolution in dots per inch.")
	return cmd
}

func (p *parser) verifyCmd() *cobra.Command {
	cfg := app.DefaultVerifyConfig()
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare a word-count result with counts recomputed from the text",
		Long: fmt.Sprintf(`Compare a word-count result with counts recomputed from the text.

Both inputs may be local paths or s3://bucket/key URLs. The result is either
a {"word": count} object or a [{"word": ..., "count": ...}] list. Defaults are
%s and %s in the working directory.`, app.DefaultResultPath, app.DefaultTextPath),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			global, err := p.global()
			if err != nil {
				return err
			}
			verify, err := app.NewVerifyConfig(cfg)
			if err != nil {
				return err
			}
			p.parsed = &Command{Name: "verify", Global: global, Verify: verify}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ResultPath, "result", cfg.ResultPath, "Reducer output to check.")
	f.StringVar(&cfg.TextPath, "text", cfg.TextPath, "Source text used as ground truth.")
	f.IntVar(&cfg.MaxReport, "max-report", cfg.MaxReport, "Maximum number of mismatches to print.")
	f.BoolVar(&cfg.Strict, "strict", false, "Exit with status 1 when the counts differ.")
	f.StringVar(&cfg.Region, "region", "", "AWS region for s3:// inputs. Defaults to $AWS_REGION, then us-east-1.")
	return cmd
}
