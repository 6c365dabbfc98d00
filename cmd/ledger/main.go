package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Veraticus/spice-ledger/internal/api"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

// app carries the state shared by every command of one invocation.
type app struct {
	out     io.Writer
	printer *cli.Printer
	cfg     config.Config
	cfgFile string
	dbPath  string
	output  string
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "ledger",
		Short: "Personal finance ledger",
		Long: `ledger keeps accounts, categorized transactions, budgets and goals in a
local SQLite database, classifies new transactions with user rules and
reports budget variance and cash-flow forecasts.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	flags.StringVar(&a.dbPath, "db", "", "database path (overrides database.path)")
	flags.StringVarP(&a.output, "output", "o", cli.OutputText, "output format (text, json)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")

	root.AddCommand(
		a.accountsCmd(),
		a.categoriesCmd(),
		a.txCmd(),
		a.splitCmd(),
		a.searchCmd(),
		a.attachCmd(),
		a.budgetCmd(),
		a.summaryCmd(),
		a.goalsCmd(),
		a.forecastCmd(),
		a.rulesCmd(),
		a.fxCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.checkpointCmd(),
		a.serveCmd(),
		a.versionCmd(),
	)
	return root, a
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code. Failures
// are printed as an error envelope in JSON mode and as styled text otherwise.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root, a := newRootCmd(out)
	root.SetArgs(args)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var reported errAlreadyReported
	if errors.As(err, &reported) {
		return 1
	}
	if a.printer == nil {
		// Flag and argument errors happen before initConfig.
		a.printer = cli.NewPrinter(out, a.output)
	}
	if a.printer.JSON() {
		_ = a.printer.Error(err, nil)
	} else {
		fmt.Fprintln(errOut, cli.FormatError(api.Err(err, nil).Errors[0]))
	}
	return 1
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	a.printer = cli.NewPrinter(a.out, a.output)

	// A missing .env is fine.
	_ = godotenv.Load()

	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	if err := v.BindPFlag("logging.level", cmd.Flags().Lookup("log-level")); err != nil {
		return fmt.Errorf("failed to bind log level: %w", err)
	}
	if err := v.BindPFlag("logging.format", cmd.Flags().Lookup("log-format")); err != nil {
		return fmt.Errorf("failed to bind log format: %w", err)
	}
	if a.dbPath != "" {
		v.Set("database.path", a.dbPath)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	a.cfg = cfg
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.printer.Result(map[string]string{"version": version}, nil, func() string {
				return "ledger " + version
			})
		},
	}
}
