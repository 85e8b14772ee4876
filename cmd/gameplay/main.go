package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	LogLevel string `short:"l" name:"log-level" env:"GAMEPLAY_LOG_LEVEL" help:"Log level: debug, info, warn or error (overrides config)"`
}

// Logger returns a stderr logger at the requested level, or fallback when
// none was given.
func (g *Globals) Logger(fallback log.Level) *log.Logger {
	level := fallback
	if g.LogLevel != "" {
		if l, err := log.ParseLevel(g.LogLevel); err == nil {
			level = l
		}
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the agent service and match API"`
	Agents  AgentsCmd        `cmd:"" help:"List the agents an agent service hosts"`
	Play    PlayCmd          `cmd:"" help:"Play a match in the terminal"`
	Bench   BenchCmd         `cmd:"" help:"Play many matches between agents and report results"`
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("gameplay"),
		kong.Description("Turn-based games for humans and agents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
