package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rcjcal/internal/cache"
	"rcjcal/internal/config"
	appLog "rcjcal/internal/log"
	"rcjcal/internal/metrics"
	"rcjcal/internal/source"
	"rcjcal/internal/web"
)

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
}

func main() {
	flags := parseFlags()

	// A missing .env file is normal outside development.
	if err := godotenv.Load(flags.envFile); err != nil && !os.IsNotExist(err) {
		appLog.Error("failed to load env file", err, "path", flags.envFile)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	defer appLog.Sync()

	appLog.Info("rcjcal starting", "version", "1.0.0")

	regions, err := config.LoadRegions(conf.RegionsPath)
	if err != nil {
		appLog.Error("failed to load region config", err, "regions_path", conf.RegionsPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"source", conf.SourceBaseURL,
		"refresh", conf.Refresh,
		"fetch_timeout", conf.FetchTimeout,
		"timezone", conf.Timezone,
		"region_territories", regions.Len(),
		"once", flags.once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events := cache.New(source.NewClient(conf.SourceBaseURL, conf.FetchTimeout))

	if flags.once {
		if err := events.Refresh(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	metrics.Register()

	sched, err := cache.NewScheduler(events, conf.Refresh)
	if err != nil {
		appLog.Error("invalid refresh schedule", err)
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		appLog.Error("failed to start scheduler", err)
		os.Exit(1)
	}

	if err := web.StartServer(ctx, conf, events, regions); err != nil {
		appLog.Error("http server failed", err)
		cancel()
		sched.Stop()
		os.Exit(1)
	}

	appLog.Info("signal received, shutting down")
	sched.Stop()
	appLog.Info("rcjcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./rcjcal.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env-file", ".env", "Path to a dotenv file loaded before config")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle and exit")

	flag.Parse()

	return cfg
}
