package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/tourdesk/internal/datasource"
	"github.com/vanderheijden86/tourdesk/pkg/config"
	"github.com/vanderheijden86/tourdesk/pkg/debug"
	"github.com/vanderheijden86/tourdesk/pkg/loader"
	"github.com/vanderheijden86/tourdesk/pkg/metrics"
	"github.com/vanderheijden86/tourdesk/pkg/model"
	"github.com/vanderheijden86/tourdesk/pkg/ui"
	"github.com/vanderheijden86/tourdesk/pkg/version"
	"github.com/vanderheijden86/tourdesk/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configPath := flag.String("config", "", "Read configuration from this file instead of the XDG default")
	dataPath := flag.String("data", "", "Data file or directory (.db store or .jsonl file)")
	domainFlag := flag.String("domain", "", "Start on this tab: tours, news or gallery")
	importPath := flag.String("import", "", "Import a JSONL file into the SQLite store and exit")
	exportFlag := flag.Bool("export", false, "Write the store as JSONL and exit")
	outPath := flag.String("o", "", "Output file for --export (default stdout)")
	checkFlag := flag.Bool("check", false, "Validate every category tree and exit")
	yesFlag := flag.Bool("yes", false, "Skip confirmation prompts (use with --import)")
	metricsFlag := flag.Bool("metrics", false, "Print a JSON timing summary on exit")
	debugFlag := flag.Bool("debug", false, "Enable debug logging (same as TOURDESK_DEBUG=1)")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: tourdesk [options]")
		fmt.Println("\nA terminal back office for tour, news and gallery categories.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("tourdesk %s\n", version.Version)
		os.Exit(0)
	}

	if *debugFlag {
		debug.SetEnabled(true)
	}
	if *metricsFlag {
		metrics.SetEnabled(true)
	}

	cfg, err := loadConfig(*configPath, *dataPath, *domainFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Only import and the TUI may create a new store.
	src, err := openSource(cfg.ResolvedDataPath(), *checkFlag || *exportFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	debug.Log("opened %s source at %s", src.Type(), src.Path())

	code := run(src, cfg, runOptions{
		importPath: *importPath,
		export:     *exportFlag,
		outPath:    *outPath,
		check:      *checkFlag,
		yes:        *yesFlag,
		configPath: *configPath,
	})
	src.Close()

	if *metricsFlag {
		if data, err := metrics.MarshalSummary(); err == nil {
			fmt.Fprintln(os.Stderr, string(data))
		}
	}
	pprof.StopCPUProfile()
	os.Exit(code)
}

type runOptions struct {
	importPath string
	export     bool
	outPath    string
	check      bool
	yes        bool
	configPath string
}

// run dispatches to the batch modes or the TUI and returns the exit code.
func run(src datasource.Source, cfg config.Config, opts runOptions) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.importPath != "":
		n, err := runImport(ctx, src, opts.importPath, opts.yes, ui.Confirm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
			return 1
		}
		fmt.Printf("Imported %s into %s\n", countLabel(n), src.Path())
		return 0

	case opts.export:
		out := io.Writer(os.Stdout)
		if opts.outPath != "" {
			f, err := os.Create(opts.outPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			defer f.Close()
			out = f
		}
		if err := runExport(ctx, src, out); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			return 1
		}
		return 0

	case opts.check:
		return runCheck(ctx, src, cfg.EnabledDomains(), os.Stdout)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: tourdesk needs a terminal; use --export or --check for scripted use.")
		return 1
	}

	if err := saveRecent(src.Path(), opts.configPath); err != nil {
		debug.Log("saving config: %v", err)
	}

	var w *watcher.Watcher
	if cfg.Watch.Enabled {
		w = startWatcher(src.Path(), cfg)
	}

	m := ui.NewModel(src, ui.Options{Config: cfg, Watcher: w})
	defer m.Stop()

	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running tourdesk: %v\n", err)
		return 1
	}
	return 0
}

// openSource resolves and opens the data path. With mustExist set, a missing
// database is an error instead of being created empty.
func openSource(dataPath string, mustExist bool) (datasource.Source, error) {
	path, err := datasource.Resolve(dataPath)
	if err != nil {
		return nil, err
	}
	if mustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("no data at %s: %w", path, err)
		}
	}
	src, err := datasource.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return src, nil
}

// loadConfig reads the file, then overlays the environment and the flags.
func loadConfig(path, dataFlag, domainFlag string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if dataFlag != "" {
		cfg.DataPath = dataFlag
	}
	if domainFlag != "" {
		if _, err := model.ParseDomain(domainFlag); err != nil {
			return cfg, fmt.Errorf("--domain: %w", err)
		}
		cfg.UI.DefaultDomain = domainFlag
	}
	return cfg, cfg.Validate()
}

// saveRecent records dataPath in the config file. The file is re-read so
// environment and flag overrides are not persisted.
func saveRecent(dataPath, cfgPath string) error {
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	if cfgPath == "" {
		return nil
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return err
	}
	cfg.AddRecent(dataPath)
	return config.SaveTo(cfg, cfgPath)
}

func startWatcher(path string, cfg config.Config) *watcher.Watcher {
	w, err := watcher.New(path,
		watcher.WithPollInterval(cfg.PollInterval()),
		watcher.WithForcePoll(cfg.Watch.ForcePoll),
		watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
	)
	if err != nil {
		debug.Log("watcher disabled: %v", err)
		return nil
	}
	if err := w.Start(); err != nil {
		debug.Log("watcher disabled: %v", err)
		return nil
	}
	return w
}

// confirmFunc asks a yes/no question; ui.Confirm in production.
type confirmFunc func(title, description string) (bool, error)

var errCancelled = errors.New("cancelled")

// runImport loads a JSONL file into the store behind src. Importing over a
// store that already holds categories asks first unless yes is set.
func runImport(ctx context.Context, src datasource.Source, path string, yes bool, confirm confirmFunc) (int, error) {
	store, ok := src.(*datasource.Store)
	if !ok {
		return 0, fmt.Errorf("%w: import needs a .db data path, got %s", datasource.ErrReadOnly, src.Path())
	}
	ds, err := loader.LoadFile(path)
	if err != nil {
		return 0, err
	}

	if !yes {
		existing := 0
		for _, d := range model.AllDomains {
			n, err := store.CountCategories(ctx, d)
			if err != nil {
				return 0, err
			}
			existing += n
		}
		if existing > 0 {
			ok, err := confirm(
				fmt.Sprintf("Import %s?", countLabel(len(ds.Categories))),
				fmt.Sprintf("%s already holds %s; records with the same id are replaced.", store.Path(), countLabel(existing)),
			)
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, errCancelled
			}
		}
	}
	return store.Import(ctx, ds)
}

// runExport writes every record of src as JSONL.
func runExport(ctx context.Context, src datasource.Source, out io.Writer) error {
	var (
		ds  *loader.Dataset
		err error
	)
	switch s := src.(type) {
	case *datasource.Store:
		ds, err = s.Export(ctx)
	case *datasource.FileSource:
		ds, err = s.Dataset()
	default:
		return fmt.Errorf("export not supported for %s sources", src.Type())
	}
	if err != nil {
		return err
	}
	return loader.Write(out, ds)
}

// runCheck validates each domain's forest, printing one line per domain.
// Returns 1 if any domain failed to load or violates a tree invariant.
func runCheck(ctx context.Context, src datasource.Source, domains []model.Domain, out io.Writer) int {
	results, err := datasource.LoadAll(ctx, src, domains)
	if err != nil {
		fmt.Fprintf(out, "check aborted: %v\n", err)
		return 1
	}
	code := 0
	for _, r := range results {
		if r.Error == nil {
			r.Error = model.ValidateForest(r.Forest)
		}
		if r.Error != nil {
			fmt.Fprintf(out, "✗ %-8s %v\n", r.Domain, r.Error)
			code = 1
			continue
		}
		fmt.Fprintf(out, "✓ %-8s %s\n", r.Domain, countLabel(model.Count(r.Forest)))
	}
	return code
}

func countLabel(n int) string {
	if n == 1 {
		return "1 category"
	}
	return strconv.Itoa(n) + " categories"
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated runs: set TOURDESK_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TOURDESK_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
