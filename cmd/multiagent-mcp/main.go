package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"multiagent-mcp/internal/infra/config"
)

// options are the global flags shared by every command.
type options struct {
	configPath string
	transport  string
	addr       string
	logLevel   string
	jsonOutput bool
}

func main() {
	// A .env next to the binary is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	command := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "serve", "agents", "doctor":
			command, args = args[0], args[1:]
		case "help":
			printUsage(stderr, nil)
			return nil
		}
	}

	var opts options
	flagSet := pflag.NewFlagSet("multiagent-mcp", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	flagSet.StringVar(&opts.transport, "transport", "", "MCP transport: stdio or http (overrides config)")
	flagSet.StringVar(&opts.addr, "addr", "", "listen address for the http transport (overrides config)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flagSet.BoolVar(&opts.jsonOutput, "json", false, "agents: print the roster as JSON")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printUsage(stderr, flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	switch command {
	case "agents":
		return runAgents(opts, stdout)
	case "doctor":
		return runDoctor(opts, stdout)
	default:
		return runServe(ctx, opts, stdin, stdout)
	}
}

// loadConfig reads the config file and applies flag overrides on top of the
// file and the environment.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.transport == "" && opts.addr == "" && opts.logLevel == "" {
		return cfg, nil
	}
	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.addr != "" {
		cfg.HTTP.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `multiagent-mcp - MCP server exposing specialised coding agents

USAGE:
    multiagent-mcp [COMMAND] [FLAGS]

COMMANDS:
    serve       Run the MCP server (default)
    agents      Print the agent roster after overrides
    doctor      Check engine binaries and configuration

CONFIGURATION:
    Config file: ./multiagent-mcp.yaml
    Environment: MULTIAGENT_* variables override config; a .env file is loaded if present

FLAGS:
`)
	if flagSet != nil {
		fmt.Fprint(w, flagSet.FlagUsages())
	}
}
