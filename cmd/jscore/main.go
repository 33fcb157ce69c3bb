// jscore runs and inspects function units on the jscore engine.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"jscore/pkg/asm"
	"jscore/pkg/config"
	"jscore/pkg/driver"
	"jscore/pkg/errors"
	"jscore/pkg/logs"
	"jscore/pkg/vm"
)

var (
	errorColor  = color.New(color.FgHiRed).SprintfFunc()
	traceColor  = color.New(color.Faint).SprintfFunc()
	resultColor = color.New(color.FgGreen).SprintfFunc()
	headerColor = color.New(color.Bold).SprintfFunc()
)

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML configuration file",
		EnvVars: []string{"JSCORE_CONFIG"},
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "override the configured log level (debug|info|warn|error)",
	}
	StrictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "run every unit in strict mode",
	}
	StatsFlag = &cli.BoolFlag{
		Name:  "stats",
		Usage: "print heap statistics after the run",
	}
	YAMLFlag = &cli.BoolFlag{
		Name:  "yaml",
		Usage: "print the unit in its YAML form instead of a listing",
	}
)

var (
	runCommand = &cli.Command{
		Name:      "run",
		Usage:     "Run units in one engine session",
		ArgsUsage: "<unit.yaml>...",
		Flags:     []cli.Flag{StrictFlag, StatsFlag},
		Action:    runUnits,
	}
	disasmCommand = &cli.Command{
		Name:      "disasm",
		Usage:     "Assemble a unit and print its byte code",
		ArgsUsage: "<unit.yaml>",
		Flags:     []cli.Flag{YAMLFlag},
		Action:    disasmUnit,
	}
	configCommand = &cli.Command{
		Name:   "config",
		Usage:  "Print the effective configuration",
		Action: dumpConfig,
	}
)

func main() {
	app := &cli.App{
		Name:     "jscore",
		Usage:    "the jscore engine command line interface",
		Flags:    []cli.Flag{ConfigFlag, LogLevelFlag},
		Commands: []*cli.Command{runCommand, disasmCommand, configCommand},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorColor("%v", err))
		os.Exit(1)
	}
}

// loadConfig reads the --config file, or the defaults, and applies the
// global flag overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.String(ConfigFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if lvl := ctx.String(LogLevelFlag.Name); lvl != "" {
		if _, err := logs.ParseLevel(lvl); err != nil {
			return cfg, err
		}
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

func runUnits(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.Exit("run: no units given", 64)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(StrictFlag.Name) {
		cfg.Strict = true
	}
	logger, err := logs.New(cfg.Log, os.Stderr, "cli")
	if err != nil {
		return err
	}
	defer logger.Close()

	session, err := driver.NewSession(driver.Options{
		Config: cfg,
		Logger: logger.Logger,
		Output: os.Stdout,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range ctx.Args().Slice() {
		logger.Debug("running unit", "file", path)
		value, errs := session.RunFile(path)
		if len(errs) > 0 {
			printErrors(errs)
			failed++
			if isFatal(errs) {
				break
			}
			continue
		}
		if !value.IsUndefined() {
			fmt.Println(resultColor("%s", value.Inspect()))
		}
	}
	if ctx.Bool(StatsFlag.Name) {
		printStats(session.VM())
	}
	if failed > 0 {
		return cli.Exit("", 70)
	}
	return nil
}

func isFatal(errs []errors.EngineError) bool {
	for _, err := range errs {
		if _, ok := err.(*errors.FatalError); ok {
			return true
		}
	}
	return false
}

// printErrors is errors.DisplayErrors with the trace lines dimmed.
func printErrors(errs []errors.EngineError) {
	var sb strings.Builder
	errors.DisplayErrors(&sb, errs)
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "\tat "):
			fmt.Fprintln(os.Stderr, traceColor("%s", line))
		case line == "":
			fmt.Fprintln(os.Stderr)
		default:
			fmt.Fprintln(os.Stderr, errorColor("%s", line))
		}
	}
}

func printStats(machine *vm.VM) {
	stats := machine.Heap().Stats()
	fmt.Fprintln(os.Stderr, headerColor("heap"))
	fmt.Fprintf(os.Stderr, "  objects:     %d\n", stats.Objects)
	fmt.Fprintf(os.Stderr, "  envs:        %d\n", stats.Envs)
	fmt.Fprintf(os.Stderr, "  strings:     %d\n", stats.Strings)
	fmt.Fprintf(os.Stderr, "  collections: %d\n", stats.Collections)
}

func disasmUnit(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("disasm: expected exactly one unit", 64)
	}
	fn, err := asm.Load(ctx.Args().First())
	if err != nil {
		return err
	}
	if ctx.Bool(YAMLFlag.Name) {
		out, err := asm.Format(fn)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	fmt.Print(fn.Disassemble())
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	text, err := cfg.Encode()
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}
