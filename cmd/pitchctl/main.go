package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pitchctl/internal/analysis"
	"github.com/san-kum/pitchctl/internal/automation"
	"github.com/san-kum/pitchctl/internal/config"
	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
	"github.com/san-kum/pitchctl/internal/experiment"
	"github.com/san-kum/pitchctl/internal/export"
	"github.com/san-kum/pitchctl/internal/logging"
	"github.com/san-kum/pitchctl/internal/loop"
	"github.com/san-kum/pitchctl/internal/optim"
	"github.com/san-kum/pitchctl/internal/storage"
	"github.com/san-kum/pitchctl/internal/transport"
	"github.com/san-kum/pitchctl/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	// controller
	kp        float64
	kd        float64
	pwmMax    int
	targetDeg int
	disable   bool
	periodMS  int

	// transport
	transportKind string
	canInterface  string
	serialPort    string
	baudRate      int

	// simulation
	dt         float64
	duration   float64
	pitch0     float64
	rate0      float64
	integrator string
	controller string

	// sweep, monte carlo and tuning
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	tuneSteps  int
	trials     int
	perturb    float64
	seed       int64
	metricName string
	kpMin      float64
	kpMax      float64
	kdMin      float64
	kdMax      float64

	plotWidth int
	tolerance float64
	writePath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pitchctl",
		Short:         "pitch-axis attitude controller for an underwater vehicle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(cmd.Flags())
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pitchctl", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a named preset")
	logging.AddFlags(rootCmd.PersistentFlags())

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the controller against a live transport",
		RunE:  runController,
	}
	addControllerFlags(runCmd)
	runCmd.Flags().StringVar(&transportKind, "transport", "none", "transport: none, stdio, can or serial")
	runCmd.Flags().StringVar(&canInterface, "can-interface", config.DefaultCANInterface, "SocketCAN interface")
	runCmd.Flags().StringVar(&serialPort, "serial-port", "", "serial device")
	runCmd.Flags().IntVar(&baudRate, "baud", config.DefaultBaudRate, "serial baud rate")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "run a closed-loop simulation and store it",
		RunE:  runSimulation,
	}
	addControllerFlags(simCmd)
	addSimFlags(simCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive simulation with live tuning",
		RunE:  runLive,
	}
	addControllerFlags(liveCmd)
	addSimFlags(liveCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "simulate a scripted sequence of settings changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "simulate across a range of one controller parameter",
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "Kp", "parameter: Kp, Kd, Max or Target")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 100, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1200, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 6, "number of values")

	mcCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "count settled runs over perturbed initial attitudes",
		RunE:  runMonteCarlo,
	}
	addSimFlags(mcCmd)
	mcCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	mcCmd.Flags().Float64Var(&perturb, "perturb", 0.3, "initial pitch perturbation (rad)")
	mcCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search Kp and Kd on the simulated plant",
		RunE:  runTune,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().Float64Var(&kpMin, "kp-min", 100, "lowest Kp")
	tuneCmd.Flags().Float64Var(&kpMax, "kp-max", 1200, "highest Kp")
	tuneCmd.Flags().Float64Var(&kdMin, "kd-min", 10, "lowest Kd")
	tuneCmd.Flags().Float64Var(&kdMax, "kd-max", 100, "highest Kd")
	tuneCmd.Flags().IntVar(&tuneSteps, "steps", 5, "grid points per gain")
	tuneCmd.Flags().StringVar(&metricName, "metric", "tracking_rms", "metric to minimize")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "chart width")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and oscillation analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&tolerance, "tolerance", 0.02, "settling band (rad)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render run pitch and command traces as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			samples, err := st.LoadSamples(args[0])
			if err != nil {
				return err
			}
			return export.WriteRunSVG(os.Stdout, meta, samples, 800, 400)
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKP\tKD\tMAX\tTARGET\tENABLE")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name).Params
				fmt.Fprintf(w, "%s\t%g\t%g\t%d\t%d\t%t\n", name, p.Kp, p.Kd, p.PWMMax, p.DesiredPitchDeg, p.Enable)
			}
			w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		RunE:  showConfig,
	}
	addControllerFlags(configCmd)
	configCmd.Flags().StringVar(&writePath, "write", "", "also save to this path")

	rootCmd.AddCommand(runCmd, simCmd, liveCmd, scenarioCmd, sweepCmd, mcCmd, tuneCmd,
		listCmd, plotCmd, analyzeCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, configCmd)

	err := rootCmd.Execute()
	if err != nil {
		glog.Errorf("%v", err)
	}
	logging.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func addControllerFlags(cmd *cobra.Command) {
	defaults := control.DefaultParams()
	cmd.Flags().Float64Var(&kp, "kp", defaults.Kp, "proportional gain")
	cmd.Flags().Float64Var(&kd, "kd", defaults.Kd, "derivative gain")
	cmd.Flags().IntVar(&pwmMax, "pwm-max", defaults.PWMMax, "command maximum")
	cmd.Flags().IntVar(&targetDeg, "target", defaults.DesiredPitchDeg, "desired pitch in degrees [0, 360)")
	cmd.Flags().BoolVar(&disable, "disable", false, "start with the controller disabled")
	cmd.Flags().IntVar(&periodMS, "period-ms", config.DefaultPeriodMS, "control period in milliseconds")
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "plant timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&pitch0, "pitch", config.DefaultInitPitch, "initial pitch (rad)")
	cmd.Flags().Float64Var(&rate0, "rate", 0, "initial pitch rate (rad/s)")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().StringVar(&controller, "controller", "pd", "controller: pd or none")
}

// loadConfig layers preset, config file and explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("kp") {
		cfg.Params.Kp = kp
	}
	if f.Changed("kd") {
		cfg.Params.Kd = kd
	}
	if f.Changed("pwm-max") {
		cfg.Params.PWMMax = pwmMax
	}
	if f.Changed("target") {
		cfg.Params.DesiredPitchDeg = targetDeg
	}
	if f.Changed("disable") {
		cfg.Params.Enable = !disable
	}
	if f.Changed("period-ms") {
		cfg.Loop.PeriodMS = periodMS
	}
	if f.Changed("transport") {
		cfg.Transport.Kind = transportKind
	}
	if f.Changed("can-interface") {
		cfg.Transport.CANInterface = canInterface
	}
	if f.Changed("serial-port") {
		cfg.Transport.SerialPort = serialPort
	}
	if f.Changed("baud") {
		cfg.Transport.BaudRate = baudRate
	}
	if f.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if f.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if f.Changed("pitch") {
		cfg.Sim.InitPitch = pitch0
	}
	if f.Changed("rate") {
		cfg.Sim.InitRate = rate0
	}
	if f.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if f.Changed("controller") {
		cfg.Sim.Controller = controller
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !control.InDegreeDomain(cfg.Params.DesiredPitchDeg) {
		glog.Warningf("desired_pitch %d outside [0, 360), wrapping", cfg.Params.DesiredPitchDeg)
	}
	return cfg, nil
}

func openTransport(ctx context.Context, cfg *config.Config) (transport.Sink, []transport.Source, error) {
	switch cfg.Transport.Kind {
	case "stdio":
		link := transport.NewStdioLink(os.Stdin, os.Stdout)
		return link, []transport.Source{link}, nil
	case "can":
		bus, err := transport.DialCAN(ctx, cfg.Transport.CANInterface)
		if err != nil {
			return nil, nil, err
		}
		return bus, []transport.Source{bus}, nil
	case "serial":
		link, err := transport.OpenSerial(cfg.Transport.SerialPort, cfg.Transport.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return link, []transport.Source{link}, nil
	default:
		return transport.NewLogSink(), nil, nil
	}
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, sources, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	pitch := control.NewPitch(cfg.Params)
	init := pitch.Snapshot()
	glog.Infof("pitch controller: transport=%s kp=%g kd=%g max=%d target=%d° enabled=%t",
		cfg.Transport.Kind, init.Gains.Kp, init.Gains.Kd, init.Gains.CommandMax, cfg.Params.DesiredPitchDeg, init.Gains.Enabled)

	runner := loop.New(pitch, sink, loop.Config{
		Period:     cfg.Loop.Period(),
		StaleAfter: cfg.Loop.StaleAfter(),
	}, sources...)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, _, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("simulating %s controller for %.1fs...\n", cfg.Sim.Controller, cfg.Sim.Duration)
	start := time.Now()
	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := saveRun(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("ticks: %d\n", result.Ticks)
	printMetrics(result)
	return nil
}

func saveRun(cfg *config.Config, result *dynamo.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(storage.RunMetadata{
		Controller: cfg.Sim.Controller,
		Integrator: cfg.Sim.Integrator,
		Dt:         cfg.Sim.Dt,
		Period:     cfg.Loop.Period().Seconds(),
		Duration:   cfg.Sim.Duration,
		Params:     cfg.Params,
	}, result)
}

func printMetrics(result *dynamo.Result) {
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	for _, err := range result.Errors {
		fmt.Printf("  error: %v\n", err)
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	integ, err := experiment.NewRegistry().GetIntegrator(cfg.Sim.Integrator)
	if err != nil {
		return err
	}

	m := viz.NewModel(cfg.PlantModel(), integ, cfg.Params, cfg.InitState(), dynamo.Config{
		Dt:            cfg.Sim.Dt,
		Duration:      cfg.Sim.Duration,
		Period:        cfg.Loop.Period().Seconds(),
		ValidateState: true,
	})

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	result, cfg, err := automation.RunScenario(context.Background(), sc, base, experiment.NewRegistry())
	if err != nil {
		return err
	}
	runID, err := saveRun(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	fmt.Printf("run id: %s\n", runID)
	printMetrics(result)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(context.Background(), &automation.ParameterSweep{
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	}, cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL_PITCH\tTRACKING_RMS\tEFFORT\tSATURATION\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%.5f\t%.5f\t%.2f\t%.3f\n", r.Value, r.FinalPitch,
			r.Metrics["tracking_rms"], r.Metrics["control_effort"], r.Metrics["saturation"])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarloConfig{
		Perturbation: perturb,
		NumTrials:    trials,
		Tolerance:    0.02,
		Seed:         seed,
	}, cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	settled, unsettled := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d\nsettled: %d\nunsettled: %d\n", len(results), settled, unsettled)
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := optim.TuneGains(context.Background(), cfg,
		optim.Linspace(kpMin, kpMax, tuneSteps), optim.Linspace(kdMin, kdMax, tuneSteps), metricName)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated: %d (failed %d)\n", out.Evaluated, out.Failed)
	fmt.Printf("best %s: %.6f\n", metricName, out.Value)
	fmt.Printf("  kp: %g\n  kd: %g\n", out.Params["Kp"], out.Params["Kd"])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tPERIOD\tINTEG\tKP\tKD\tTRACKING_RMS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.3fs\t%s\t%g\t%g\t%.5f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Period,
			run.Integrator,
			run.Params.Kp,
			run.Params.Kd,
			run.Metrics["tracking_rms"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Print(viz.PlotSamples(meta, samples, plotWidth))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	times := make([]float64, len(samples))
	pitch := make([]float64, len(samples))
	for i, smp := range samples {
		times[i], pitch[i] = smp.Time, smp.Pitch
	}

	target := control.DegreesToRadiansSigned(meta.Params.DesiredPitchDeg)
	r, err := analysis.Analyze(times, pitch, target, tolerance)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", meta.ID)
	fmt.Fprintf(w, "target\t%.2f°\n", control.RadiansToDegrees(r.Target))
	fmt.Fprintf(w, "initial\t%.2f°\n", control.RadiansToDegrees(r.Initial))
	fmt.Fprintf(w, "final\t%.2f°\n", control.RadiansToDegrees(r.Final))
	fmt.Fprintf(w, "overshoot\t%.1f%%\n", r.Overshoot*100)
	fmt.Fprintf(w, "rise time\t%.3fs\n", r.RiseTime)
	fmt.Fprintf(w, "settling time\t%.3fs\n", r.SettlingTime)
	fmt.Fprintf(w, "steady-state error\t%.3f°\n", control.RadiansToDegrees(r.SteadyStateError))
	fmt.Fprintf(w, "dominant frequency\t%.3f Hz\n", r.Frequency)
	return w.Flush()
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if writePath != "" {
		if err := config.Save(writePath, cfg); err != nil {
			return err
		}
		glog.Infof("wrote %s", writePath)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
