package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gopkg.in/yaml.v2"

	"github.com/kafkapull/go-msk-worker/app/config"
	"github.com/kafkapull/go-msk-worker/app/extractor"
	"github.com/kafkapull/go-msk-worker/app/logger"
	"github.com/kafkapull/go-msk-worker/app/msk"
	"github.com/kafkapull/go-msk-worker/app/normalizer"
	"github.com/kafkapull/go-msk-worker/app/server"
)

var (
	BuildDate string
)

const (
	exitSuccess = 0
	exitHard    = 1
	exitPartial = 2
)

func main() {
	var configFilePath string

	flag.StringVar(&configFilePath, "config-file-path", "", "Config file path")
	flag.Parse()

	if configFilePath == "" {
		log.Fatal("Must provide config file path")
	}

	var cfg config.Config
	b, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		log.Fatalf("error reading config file: %v", err)
	}

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		log.Fatalf("error parsing config file: %v", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		log.Fatalf("error validating config: %v", err)
	}

	if cfg.Environment.DisableStdOutLogger {
		os.Setenv("DISABLE_STDOUT_LOGGER", "true")
	}

	if cfg.Environment.Environment != "" {
		os.Setenv("ENVIRONMENT", cfg.Environment.Environment)
	}

	if cfg.Environment.SentryDSN != "" {
		os.Setenv("SENTRY_DSN", cfg.Environment.SentryDSN)
	}

	if cfg.Environment.AWSRegion != "" {
		os.Setenv("AWS_REGION", cfg.Environment.AWSRegion)
	}

	// Run after env has been loaded for the Sentry logger
	logger.Initialize()

	ctx, cancel := context.WithCancel(context.Background())

	client, err := msk.NewClient(ctx, cfg.Environment.AWSRegion)
	if err != nil {
		logger.Fatalf("Failed to initialize MSK client: %v", err)
	}

	worker := extractor.New(cfg, client, client.Region(), normalizer.MSKTable())
	srv := server.NewServer(cfg.Environment.Port, BuildDate, worker)

	wg := sync.WaitGroup{}

	workerDone := make(chan struct{})

	wg.Add(1)
	go func() {
		if err := worker.Run(ctx); err != nil {
			logger.Errorf("Failed to run extraction: %v", err)
		}
		close(workerDone)
		wg.Done()
	}()

	wg.Add(1)
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Warnf("Failed to run server: %v", err)
		}
		wg.Done()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case oscall := <-quit:
		logger.Infof("Received system call: %+v. Shutting MSK stats worker down...", oscall)
	case <-workerDone:
	}

	cancel()

	wg.Wait()

	code := exitCode(worker)

	logger.Infof("MSK stats worker exiting with code %d", code)
	logger.Flush()

	os.Exit(code)
}

// exitCode maps the last run's outcome onto the process exit contract:
// 0 all pairs fetched, 2 output written with some pairs failed, 1 hard
// failure with no usable output.
func exitCode(worker *extractor.Extractor) int {
	summary, ok := worker.LastSummary()
	if !ok {
		return exitHard
	}

	if summary.State != extractor.StateCompleted.String() {
		return exitHard
	}

	if summary.PairsFailed > 0 || len(summary.Failures) > 0 {
		return exitPartial
	}

	return exitSuccess
}
