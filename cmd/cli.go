// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"time"

	"sessionkey/internal/config"
	"sessionkey/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Subcommands recorded in config.Command.
const (
	CommandServe   = "serve"
	CommandAnalyze = "analyze"
	CommandRecord  = "record"
	CommandDevices = "devices"
	CommandKeys    = "keys"
	CommandVersion = "version"
)

// flagValues receives the raw flag values. Only flags set on the command
// line are copied into the loaded configuration.
type flagValues struct {
	configPath string
	logLevel   string
	logFormat  string
	debug      bool

	addr        string
	workers     int
	queueDepth  int
	historyPath string
	recognition bool
	udpTarget   string
	noWebSocket bool

	output        string
	minConfidence float64
	maxDuration   time.Duration

	device          int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	duration        time.Duration
	outputDir       string
	bitDepth        int
}

// ParseArgs parses the command line, loads the configuration file it names
// (or the default one) and applies the flags that were set on top of it.
// A nil config with a nil error means help or version output was printed
// and there is nothing to run.
func ParseArgs(args []string, stdout io.Writer) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		fv      flagValues
		command string
		cmdArgs []string
	)

	selectCommand := func(name string) func(*cobra.Command, []string) error {
		return func(_ *cobra.Command, args []string) error {
			command = name
			cmdArgs = args
			return nil
		}
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Global configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&fv.configPath, "config", "c", "",
		"Configuration file (default ./sessionkey.yaml or ~/.config/sessionkey/config.yaml)")
	pf.StringVar(&fv.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&fv.logFormat, "log-format", "text", "Log format (text, json)")
	pf.BoolVar(&fv.debug, "debug", false, "Enable debug logging and stage tracing")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis service",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandServe),
	}
	serveCmd.Flags().StringVarP(&fv.addr, "addr", "a", config.DefaultServerAddr, "Listen address")
	serveCmd.Flags().StringVar(&fv.historyPath, "history", "", "JSON file for analysis history (default in memory)")
	serveCmd.Flags().BoolVar(&fv.recognition, "recognition", false, "Enable song recognition (needs credentials in the config)")
	serveCmd.Flags().StringVar(&fv.udpTarget, "udp", "", "Publish chroma packets to this host:port")
	serveCmd.Flags().BoolVar(&fv.noWebSocket, "no-websocket", false, "Disable the /ws event stream")
	addPoolFlags(serveCmd.Flags(), &fv)

	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Estimate key and tempo of audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  selectCommand(CommandAnalyze),
	}
	addPoolFlags(analyzeCmd.Flags(), &fv)
	addReportFlags(analyzeCmd.Flags(), &fv)
	analyzeCmd.Flags().DurationVar(&fv.maxDuration, "max-duration", config.DefaultMaxDuration, "Longest accepted clip")

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record a clip from an input device and analyze it",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandRecord),
	}
	addReportFlags(recordCmd.Flags(), &fv)
	rf := recordCmd.Flags()
	rf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'devices' command to see available devices.")
	rf.IntVar(&fv.channels, "channels", config.DefaultChannels, "Number of channels to record (1=mono, 2=stereo)")
	rf.Float64VarP(&fv.sampleRate, "sample-rate", "s", 44100, "Sample rate, measured in Hertz (Hz)")
	rf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rf.BoolVarP(&fv.lowLatency, "low-latency", "l", false, "Use the device's low latency setting")
	rf.DurationVarP(&fv.duration, "duration", "t", config.DefaultRecordDuration, "Length of the recorded clip")
	rf.StringVarP(&fv.outputDir, "output-dir", "o", "./recordings", "Directory for recorded WAV files")
	rf.IntVar(&fv.bitDepth, "bit-depth", config.DefaultBitDepth, "WAV bit depth (16, 24 or 32)")

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandDevices),
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List the 24 keys with their relative keys and progressions",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandKeys),
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE:  selectCommand(CommandVersion),
	}

	rootCmd.AddCommand(serveCmd, analyzeCmd, recordCmd, devicesCmd, keysCmd, versionCmd)

	// Execute the CLI
	rootCmd.SetArgs(args)
	executed, err := rootCmd.ExecuteC()
	if err != nil {
		return nil, err
	}
	if command == "" {
		return nil, nil
	}

	cfg, err := config.LoadConfig(fv.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Command = command
	cfg.Args = cmdArgs
	applyFlags(executed.Flags(), &fv, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Output != "table" && cfg.Output != "json" {
		return nil, fmt.Errorf("%w: output format '%s' must be table or json", config.ErrInvalid, cfg.Output)
	}
	return cfg, nil
}

func addPoolFlags(fs *pflag.FlagSet, fv *flagValues) {
	fs.IntVarP(&fv.workers, "workers", "w", 0, "Analysis workers (default GOMAXPROCS)")
	fs.IntVar(&fv.queueDepth, "queue-depth", config.DefaultQueueDepth, "Jobs allowed to wait for a worker")
}

func addReportFlags(fs *pflag.FlagSet, fv *flagValues) {
	fs.StringVar(&fv.output, "output", "table", "Report format (table, json)")
	fs.Float64Var(&fv.minConfidence, "min-confidence", 0, "Key confidence (0-100) below which the key is undetermined")
}

// applyFlags copies the flags set on the command line into cfg. Flags
// not defined on the executed command report Changed as false.
func applyFlags(fs *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := fs.Changed

	if set("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if set("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if set("debug") {
		cfg.Debug = fv.debug
	}
	if cfg.Debug && !set("log-level") {
		cfg.LogLevel = "debug"
	}

	if set("addr") {
		cfg.Server.Addr = fv.addr
	}
	if set("workers") {
		cfg.Server.Workers = fv.workers
	}
	if set("queue-depth") {
		cfg.Server.QueueDepth = fv.queueDepth
	}
	if set("history") {
		cfg.History.Path = fv.historyPath
	}
	if set("recognition") {
		cfg.Recognition.Enabled = fv.recognition
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = fv.udpTarget != ""
		cfg.Transport.UDPTargetAddress = fv.udpTarget
	}
	if set("no-websocket") {
		cfg.Transport.WebSocketEnabled = !fv.noWebSocket
	}

	if set("output") {
		cfg.Output = fv.output
	}
	if set("min-confidence") {
		cfg.Analysis.MinConfidence = fv.minConfidence
	}
	if set("max-duration") {
		cfg.Decode.MaxDuration = fv.maxDuration
	}

	if set("device") {
		cfg.Recording.InputDevice = fv.device
	}
	if set("channels") {
		cfg.Recording.Channels = fv.channels
	}
	if set("sample-rate") {
		cfg.Recording.SampleRate = fv.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Recording.FramesPerBuffer = fv.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Recording.LowLatency = fv.lowLatency
	}
	if set("duration") {
		cfg.Recording.Duration = fv.duration
	}
	if set("output-dir") {
		cfg.Recording.OutputDir = fv.outputDir
	}
	if set("bit-depth") {
		cfg.Recording.BitDepth = fv.bitDepth
	}
}
