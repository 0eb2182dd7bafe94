package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kafkapull/go-msk-worker/app/extractor"
	"github.com/kafkapull/go-msk-worker/app/logger"
)

// SummarySource exposes the latest extraction run report.
type SummarySource interface {
	LastSummary() (extractor.Summary, bool)
}

type Server struct {
	server *http.Server
}

func NewServer(port, rawBuildDate string, source SummarySource) *Server {
	if port == "" {
		port = "8080"
	}

	var buildDate string
	unixTimestamp, err := strconv.ParseInt(rawBuildDate, 10, 64)
	if err != nil {
		buildDate = "N/A"
	} else {
		t := time.Unix(unixTimestamp, 0).In(time.UTC)

		buildDate = t.Format("Mon Jan 2 15:04:05 MST 2006")
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			info := map[string]interface{}{
				"Info":       "MSK Stats Worker",
				"Build Date": buildDate,
				"Status":     "ok",
			}

			if summary, ok := source.LastSummary(); ok {
				info["Last Run"] = summary
			}

			b, _ := json.MarshalIndent(info, "", "  ")

			w.Header().Set("Content-Type", "application/json")
			w.Write(b)
		},
	))

	s := &Server{
		server: &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		},
	}

	return s
}

func (s *Server) Run(ctx context.Context) error {
	logger.Infof("Server starting on port: %v", s.server.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to run server: %+v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting server down gracefully...")

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer func() {
		cancel()
	}()

	err := s.server.Shutdown(ctxShutDown)
	if err != nil && err != http.ErrServerClosed {
		logger.Errorf("Server failed to shutdown gracefully: %+v", err)
		return err
	}

	logger.Info("Server gracefully terminated")

	return nil
}
