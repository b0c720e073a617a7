package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"owlsight/internal/config"
	"owlsight/internal/driver"
	"owlsight/internal/observ"
	"owlsight/internal/trace"
	"owlsight/internal/watch"
	"owlsight/internal/workspace"
)

var (
	checkFacts   string
	checkJobs    int
	checkUI      string
	checkWatch   bool
	checkTimings bool
	checkNoCache bool
)

func init() {
	checkCmd.Flags().StringVar(&checkFacts, "facts", "", "read a recorded fact stream instead of running the analyzer (- for stdin)")
	checkCmd.Flags().IntVar(&checkJobs, "jobs", 0, "max parallel function analyses (0=project config or GOMAXPROCS)")
	checkCmd.Flags().StringVar(&checkUI, "ui", "auto", "user interface (auto|on|off)")
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "re-run whenever sources change")
	checkCmd.Flags().BoolVar(&checkTimings, "timings", false, "print stage and per-crate timings")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-disk-cache", false, "do not reuse per-function results")
}

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Analyze a project and store the result in its cache",
	Long: `Run the analyzer once over the project containing path (default: the
current directory), write cache.json and print a summary. The command fails
when the analysis produced no functions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

type checkOptions struct {
	facts   string
	jobs    int
	useTUI  bool
	timings bool
	cache   *driver.DiskCache
	out     io.Writer
	errOut  io.Writer
}

// checkReport is the outcome of one check run.
type checkReport struct {
	result *driver.RunResult
	status workspace.Status
	timer  *observ.Timer
}

func runCheck(cmd *cobra.Command, args []string) error {
	mode, err := parseSwitch("ui", checkUI)
	if err != nil {
		return err
	}
	if checkFacts == "-" && checkWatch {
		return errors.New("--watch cannot be combined with --facts -")
	}
	start := "."
	if len(args) > 0 {
		start = args[0]
	}
	p, err := resolveProject(start, checkFacts != "")
	if err != nil {
		return err
	}

	opts := checkOptions{
		facts:   checkFacts,
		jobs:    checkJobs,
		useTUI:  mode.enabled(isTerminal(os.Stdout)) && checkFacts != "-",
		timings: checkTimings,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
	}
	if opts.jobs <= 0 {
		opts.jobs = p.Config.Analyzer.Jobs
	}
	if p.Config.Cache.Disk && !checkNoCache {
		if opts.cache, err = openDiskCache(); err != nil {
			fmt.Fprintf(opts.errOut, "disk cache disabled: %v\n", err)
		}
	}

	ctx := cmd.Context()
	report, err := checkOnce(ctx, p, opts)
	if err != nil && !checkWatch {
		return err
	}
	if err == nil {
		printReport(opts, p, report)
	} else {
		fmt.Fprintf(opts.errOut, "%s %v\n", color.RedString("error:"), err)
	}
	if !checkWatch {
		if report.status == workspace.StatusError {
			return errors.New("analysis finished with status error")
		}
		return nil
	}

	opts.useTUI = false
	w, err := watch.NewWatcher(p.Root, 0, func(ctx context.Context) error {
		fmt.Fprintln(opts.out, color.CyanString("change detected, re-checking %s", p.Root))
		report, err := checkOnce(ctx, p, opts)
		if err != nil {
			return err
		}
		printReport(opts, p, report)
		return nil
	}, func(err error) {
		fmt.Fprintf(opts.errOut, "%s %v\n", color.RedString("watch:"), err)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.out, "watching %s (ctrl-c to stop)\n", p.Root)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// checkOnce runs one analysis of p, publishes it through a store and saves
// cache.json when the run produced functions.
func checkOnce(ctx context.Context, p *config.Project, opts checkOptions) (*checkReport, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "check")
	defer span.End(p.Root)

	timer := observ.NewTimer()
	units := newUnitTimings(timer)
	runOpts := driver.Options{
		Root:  p.Root,
		Jobs:  opts.jobs,
		Cache: opts.cache,
		Sink:  units,
	}

	store := workspace.NewStore()
	gen := store.Begin()
	stage := timer.Stage("analyze")
	var res *driver.RunResult
	var err error
	if opts.useTUI {
		res, err = runWithUI(ctx, "owlsight check", runOpts, func(ctx context.Context, o driver.Options) (*driver.RunResult, error) {
			return analyze(ctx, p, opts, o)
		})
	} else {
		res, err = analyze(ctx, p, opts, runOpts)
	}
	if err != nil {
		stage.Done("failed")
		store.Fail(gen, err)
		return &checkReport{status: workspace.StatusError, timer: timer}, err
	}
	stage.Done(fmt.Sprintf("%d functions", res.Functions))

	status := store.Finish(gen, res.Workspace)
	if res.Functions > 0 && p.Config.Cache.Disk {
		save := timer.Stage("save")
		path := workspace.CachePath(p.CacheDir())
		if err := workspace.Save(path, res.Workspace); err != nil {
			save.Done("failed")
			return nil, err
		}
		save.Done(formatPathForOutput(p.Root, path))
	}
	return &checkReport{result: res, status: status, timer: timer}, nil
}

// checkLauncher keeps watch re-runs from overlapping.
var checkLauncher driver.Launcher

func analyze(ctx context.Context, p *config.Project, opts checkOptions, runOpts driver.Options) (*driver.RunResult, error) {
	switch opts.facts {
	case "":
		return checkLauncher.Launch(ctx, driver.Command{
			Args:   p.Config.Analyzer.Command,
			Env:    p.Config.Analyzer.Env,
			Dir:    p.Root,
			Stderr: opts.errOut,
		}, runOpts)
	case "-":
		return checkLauncher.LaunchReader(ctx, os.Stdin, runOpts)
	default:
		// #nosec G304 -- path is provided by the user
		f, err := os.Open(opts.facts)
		if err != nil {
			return nil, fmt.Errorf("open fact stream: %w", err)
		}
		defer f.Close()
		return checkLauncher.LaunchReader(ctx, f, runOpts)
	}
}

func printReport(opts checkOptions, p *config.Project, report *checkReport) {
	res := report.result
	if res == nil {
		return
	}
	for _, f := range res.Failures {
		fmt.Fprintf(opts.errOut, "%s %v\n", color.YellowString("skipped:"), f)
	}
	if res.ExitErr != nil {
		fmt.Fprintf(opts.errOut, "%s analyzer exited: %v\n", color.YellowString("warning:"), res.ExitErr)
	}
	statusText := color.GreenString(report.status.String())
	if report.status == workspace.StatusError {
		statusText = color.RedString(report.status.String())
	}
	fmt.Fprintf(opts.out, "%s: %d functions, %d crates checked, %d cached, %d skipped, %d malformed lines in %s [%s]\n",
		p.Root, res.Functions, res.Checked, res.CacheHits, len(res.Failures), res.Malformed,
		res.Elapsed.Round(time.Millisecond), statusText)
	if opts.timings {
		fmt.Fprint(opts.out, report.timer.Summary())
	}
}

// unitTimings turns driver events into per-crate timer entries: a crate
// starts with its first analyzed function and ends when it is merged.
type unitTimings struct {
	timer *observ.Timer
	mu    sync.Mutex
	start map[string]time.Duration
}

func newUnitTimings(timer *observ.Timer) *unitTimings {
	return &unitTimings{timer: timer, start: make(map[string]time.Duration)}
}

func (u *unitTimings) OnEvent(ev driver.Event) {
	if ev.Unit == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	switch ev.Stage {
	case driver.StageAnalyze:
		if _, ok := u.start[ev.Unit]; !ok {
			u.start[ev.Unit] = ev.Elapsed
		}
	case driver.StageMerge:
		began, ok := u.start[ev.Unit]
		if !ok {
			return
		}
		delete(u.start, ev.Unit)
		u.timer.Unit(ev.Unit, ev.Elapsed-began, string(ev.Status))
	}
}
