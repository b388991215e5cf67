package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"ScoutSync/internal/di"
	"ScoutSync/pkg/config"
	"ScoutSync/pkg/server"
)

// fileList collects repeated -file flags.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var files fileList
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", server.ModeOnce, "run mode: once or serve")
	flag.Var(&files, "file", "workbook to reconcile (repeatable); default is every file of the source")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s store=%s source=%s mode=%s", cfg.Environment, cfg.Store.Driver, cfg.Source.Type, *mode)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	err = app.Run(*mode, files)
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
