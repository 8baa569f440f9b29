package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/hpungsan/nihss/internal/config"
	"github.com/hpungsan/nihss/internal/history"
	"github.com/hpungsan/nihss/internal/kv"
	"github.com/hpungsan/nihss/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"items": true, "score": true, "save": true,
	"list": true, "show": true, "delete": true, "clear": true,
	"export": true, "import": true, "device-id": true,
	"serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags come before the subcommand
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "--verbose" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _   _ ___ _   _ ____ ____
  | \ | |_ _| | | / ___/ ___|
  |  \| || || |_| \___ \___ \
  | |\  || ||  _  |___) |__) |
  |_| \_|___|_| |_|____/____/

  NIH Stroke Scale scoring and history

  Usage: nihss <command> [options]
         nihss --help

  MCP server mode requires piped input.`)
}

// newLogger returns a stderr console logger. stdout is reserved for
// command output and the MCP protocol.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isStderrTerminal()}).
		With().Timestamp().Logger()
}

func isStderrTerminal() bool {
	stat, err := os.Stderr.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening storage
	if isHelpOrVersion() {
		app := newCLIApp(&appEnv{store: history.New(nil), cfg: config.DefaultConfig(), log: zerolog.Nop()})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".nihss")

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	database, err := kv.Open(baseDir)
	if err != nil {
		logger.Error().Err(err).Str("dir", baseDir).Msg("failed to open storage")
		os.Exit(1)
	}
	defer database.Close()
	database.ConfigurePool(cfg)

	store := history.New(database,
		history.WithLogger(logger),
		history.WithExportsDir(filepath.Join(baseDir, "exports")),
	)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(&appEnv{store: store, cfg: cfg, log: logger})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'nihss --help' for usage.\n")
		database.Close()
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}

	// MCP server mode (default)
	if err := mcp.Run(store, cfg, Version); err != nil {
		logger.Error().Err(err).Msg("mcp server stopped")
		database.Close()
		os.Exit(1)
	}
}
