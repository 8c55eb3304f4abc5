package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use: "run <BLOCKSIZE> <SIZE> <ASSOC> <REPLACEMENT_POLICY> " +
		"<WRITE_POLICY> <trace_file>",
	Short: "Replay a trace through a cache and print the statistics.",
	Long: "`run` replays a trace of `<r|w> <hex-address>` lines. " +
		"REPLACEMENT_POLICY is 0 (LRU) or 1 (FIFO). " +
		"WRITE_POLICY is 0 (write-back write-allocate) or " +
		"1 (write-through no-write-allocate).",
	Args: cobra.ExactArgs(6),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := parseRunOptions(cmd.Flags(), args)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		err = runSimulation(ctx, cmd.OutOrStdout(), opts)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(flags *pflag.FlagSet) {
	flags.String("name", "L1", "Name of the cache in the report")
	flags.Bool("json", false, "Print the report as JSON")
	flags.Bool("dump-sets", false,
		"Print the content of every set after the report")
	flags.String("trace-log", "",
		"Log every access and transfer to a file, - for stderr")
	flags.Bool("record-db", false,
		"Record every access and transfer in a SQLite database")
	flags.String("db-file", "",
		"Name of the database without the .sqlite3 extension")
	flags.Bool("monitor", false,
		"Serve the state of the simulation over HTTP")
	flags.Int("monitor-port", 0,
		"Port of the monitoring server, random if not set")
	flags.Bool("open-browser", false,
		"Open the monitoring page in the browser")
	flags.Bool("hold", false,
		"Keep the monitoring server running after the trace ends, "+
			"until interrupted")
}

type runOptions struct {
	config    cache.Config
	traceFile string
	name      string

	jsonOut  bool
	dumpSets bool
	traceLog string
	recordDB bool
	dbFile   string

	monitor     bool
	monitorPort int
	openBrowser bool
	hold        bool
}

func parseRunOptions(flags *pflag.FlagSet, args []string) (runOptions, error) {
	config, err := parseCacheConfig(args[:5])
	if err != nil {
		return runOptions{}, err
	}

	opts := runOptions{
		config:    config,
		traceFile: args[5],
	}

	opts.name, _ = flags.GetString("name")
	opts.jsonOut, _ = flags.GetBool("json")
	opts.dumpSets, _ = flags.GetBool("dump-sets")
	opts.traceLog, _ = flags.GetString("trace-log")
	opts.recordDB, _ = flags.GetBool("record-db")
	opts.dbFile, _ = flags.GetString("db-file")
	opts.monitor, _ = flags.GetBool("monitor")
	opts.monitorPort, _ = flags.GetInt("monitor-port")
	opts.openBrowser, _ = flags.GetBool("open-browser")
	opts.hold, _ = flags.GetBool("hold")

	if opts.dbFile != "" && !opts.recordDB {
		return runOptions{}, fmt.Errorf("--db-file requires --record-db")
	}

	if (opts.monitorPort != 0 || opts.openBrowser || opts.hold) &&
		!opts.monitor {
		return runOptions{}, fmt.Errorf(
			"--monitor-port, --open-browser and --hold require --monitor")
	}

	return opts, nil
}

// parseCacheConfig parses BLOCKSIZE, SIZE, ASSOC, REPLACEMENT_POLICY and
// WRITE_POLICY.
func parseCacheConfig(args []string) (cache.Config, error) {
	var (
		c   cache.Config
		err error
	)

	if c.BlockSize, err = cache.ParseSize("BlockSize", args[0]); err != nil {
		return c, err
	}

	if c.CacheByteSize, err = cache.ParseSize("CacheByteSize", args[1]); err != nil {
		return c, err
	}

	if c.Associativity, err = cache.ParseSize("Associativity", args[2]); err != nil {
		return c, err
	}

	if c.ReplacementPolicy, err = cache.ParseReplacementPolicy(args[3]); err != nil {
		return c, err
	}

	if c.WritePolicy, err = cache.ParseWritePolicy(args[4]); err != nil {
		return c, err
	}

	return c, c.Validate()
}

func buildSimulation(opts runOptions) (*simulation.Simulation, func(), error) {
	closeLog := func() {}

	b := simulation.MakeBuilder().
		WithName(opts.name).
		WithCacheConfig(opts.config)

	switch opts.traceLog {
	case "":
	case "-":
		b = b.WithTraceLogger(log.New(os.Stderr, "", 0))
	default:
		f, err := os.Create(opts.traceLog)
		if err != nil {
			return nil, nil, fmt.Errorf("creating trace log: %w", err)
		}

		closeLog = func() { f.Close() }
		b = b.WithTraceLogger(log.New(f, "", 0))
	}

	if opts.recordDB {
		b = b.WithDataRecording().WithOutputFileName(opts.dbFile)
	}

	if opts.monitor {
		b = b.WithMonitoring().WithMonitorPort(opts.monitorPort)
	}

	s, err := b.Build()
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	return s, closeLog, nil
}

func runSimulation(ctx context.Context, out io.Writer, opts runOptions) error {
	s, closeLog, err := buildSimulation(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	if opts.openBrowser {
		if err := s.GetMonitor().OpenBrowser(); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	err = replay(ctx, s, opts)
	if err != nil {
		s.Terminate()
		return err
	}

	err = s.Terminate()
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	err = writeReport(out, s, opts)
	if err != nil {
		return err
	}

	if opts.hold {
		fmt.Fprintln(os.Stderr, "Simulation finished, press Ctrl-C to exit")
		<-ctx.Done()
	}

	return nil
}

func replay(
	ctx context.Context,
	s *simulation.Simulation,
	opts runOptions,
) error {
	f, err := os.Open(opts.traceFile)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	var src simulation.Source

	if opts.monitor {
		// Reading everything first gives the progress bar its total.
		reqs, err := trace.ReadAll(f)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.traceFile, err)
		}

		src = simulation.FromRequests(reqs)
	} else {
		src = trace.NewReader(f)
	}

	_, err = s.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.traceFile, err)
	}

	return nil
}

func writeReport(
	out io.Writer,
	s *simulation.Simulation,
	opts runOptions,
) error {
	summary := report.Summarize(s, opts.traceFile)

	var err error
	if opts.jsonOut {
		err = report.WriteJSON(out, summary)
	} else {
		err = report.Write(out, summary)
	}

	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if !opts.dumpSets {
		return nil
	}

	fmt.Fprintln(out)

	return report.WriteSets(out, s)
}
