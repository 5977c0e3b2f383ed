package main

import (
	"flag"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	versionKey = "version"

	dbDirKey        = "db-dir"
	inMemoryDBKey   = "db-in-memory"
	listenAddrKey   = "listen-addr"
	numBlocksKey    = "num-blocks-per-iteration"
	statsIntervalKey = "stats-interval"
	logLevelKey     = "log-level"
)

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("execution-engine", flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints the version and exits")
	fs.String(dbDirKey, "", "Directory holding the block/receipt databases")
	fs.Bool(inMemoryDBKey, false, "Use an in-memory database instead of db-dir (development only)")
	fs.String(listenAddrKey, "127.0.0.1:9650", "Address the JSON-RPC API listens on")
	fs.Uint64(numBlocksKey, 0, "Blocks delivered per Iterate call before the run loop reassesses (0 uses the package default)")
	fs.Duration(statsIntervalKey, 0, "Interval between stats reports (0 uses the package default)")
	fs.String(logLevelKey, "info", "log15 level: crit, error, warn, info, debug, trace")

	return fs
}

// getViper returns the parsed configuration for this invocation,
// mirroring main/params.go's getViper: a pflag.FlagSet bound into a
// fresh viper.Viper.
func getViper() (*viper.Viper, error) {
	v := viper.New()

	fs := buildFlagSet()
	pflag.CommandLine.AddGoFlagSet(fs)
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	return v, nil
}
