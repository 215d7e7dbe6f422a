package config

import (
	"flag"
	"os"
	"time"

	"github.com/willnicht/willnicht/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the backend
//	-e string   evaluator webhook URL
//	-d string   data directory holding the local cache file
//	-i int      online check interval in seconds
//	-l string   log level
//	-remote     remote storage switch, spelled -remote=false to disable
//
// Only these flags are kept from os.Args (flagx.FilterArgs), so -c/-config
// and flags of other components do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-e", "-d", "-i", "-l", "-remote"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.EvaluatorURL, "e", cfg.EvaluatorURL, "evaluator webhook URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.RemoteEnabled, "remote", cfg.RemoteEnabled, "store results remotely")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
