package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	cli "gopkg.in/urfave/cli.v1"
	yaml "gopkg.in/yaml.v2"

	"kiwi/db"
	"kiwi/rpc"
)

var app *cli.App

var configPathFlag = cli.StringFlag{
	Name:  "config",
	Usage: "config path",
	Value: "./config.yml",
}

func init() {
	app = cli.NewApp()
	app.Version = "v1.0.0"
	app.Commands = []cli.Command{
		commandStart,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var commandStart = cli.Command{
	Name:  "start",
	Usage: "start the conversation API server",
	Flags: []cli.Flag{
		configPathFlag,
	},
	Action: Start,
}

type Config struct {
	Port         string `yaml:"port"`
	Host         string `yaml:"host"`
	DatabaseURL  string `yaml:"database_url"`
	DatabaseName string `yaml:"database_name"`
}

func Start(ctx *cli.Context) {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	conf := loadConfig(ctx, log)
	if conf.Host != "" {
		rpc.Host = conf.Host
	}

	// A missing database is not fatal: the service still answers, handlers
	// report the store as unavailable per request.
	var store db.Store
	if conf.DatabaseURL != "" {
		mongoStore, err := db.Connect(context.Background(), conf.DatabaseURL, conf.DatabaseName)
		if err != nil {
			log.Warnw("mongo unavailable, starting without a store", "url", conf.DatabaseURL, "error", err)
		} else {
			store = mongoStore
			defer mongoStore.Disconnect(context.Background())
		}
	} else {
		log.Warn("no database url configured, starting without a store")
	}

	svc := rpc.NewService(conf.Port, store, log)
	go func() {
		if err := svc.Start(); err != nil {
			log.Fatalw("rpc server stopped", "error", err)
		}
	}()
	waitToExit(log)
}

func loadConfig(ctx *cli.Context, log *zap.SugaredLogger) Config {
	conf := Config{
		Port:         "8000",
		DatabaseName: "kiwi",
	}
	configPath := ctx.String(configPathFlag.Name)
	b, err := os.ReadFile(configPath)
	if err != nil {
		if ctx.IsSet(configPathFlag.Name) {
			log.Fatalw("read config error", "path", configPath, "error", err)
		}
	} else if err := yaml.Unmarshal(b, &conf); err != nil {
		log.Fatalw("parse config error", "path", configPath, "error", err)
	}
	// env wins over file values
	if v := os.Getenv("PORT"); v != "" {
		conf.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		conf.DatabaseURL = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		conf.DatabaseName = v
	}
	if conf.Port == "" {
		conf.Port = "8000"
	}
	return conf
}

func waitToExit(log *zap.SugaredLogger) {
	exit := make(chan bool, 0)
	sc := make(chan os.Signal, 1)
	if !signal.Ignored(syscall.SIGHUP) {
		signal.Notify(sc, syscall.SIGHUP)
	}
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sc {
			log.Infow("received exit signal", "signal", sig.String())
			close(exit)
			break
		}
	}()
	<-exit
}
