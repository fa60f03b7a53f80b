package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/configfile"
	"github.com/qrscan/qrscan/preprocess"
	"github.com/qrscan/qrscan/strategy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing QR decoding and Prometheus metrics",
	Long: `Start an HTTP server that decodes uploaded images and exposes
Prometheus metrics.

Endpoints:
  POST /decode  - multipart/form-data upload, field "image"
  GET  /metrics - Prometheus metrics
  GET  /health  - health check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d", port)
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/health", handleHealth)
		mux.HandleFunc("/decode", handleDecode(cfg))
		mux.Handle("/metrics", promhttp.Handler())

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(cfg.Server.TimeoutSec) * time.Second,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			slog.Info("starting qrscan server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleDecode(cfg *configfile.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpRequestsTotal.WithLabelValues("method_not_allowed").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		maxBytes := int64(cfg.Server.MaxUploadMB) * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			httpRequestsTotal.WithLabelValues("bad_request").Inc()
			http.Error(w, fmt.Sprintf("upload too large or malformed: %v", err), http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("image")
		if err != nil {
			httpRequestsTotal.WithLabelValues("bad_request").Inc()
			http.Error(w, "missing \"image\" form field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpRequestsTotal.WithLabelValues("bad_request").Inc()
			http.Error(w, "failed to read upload", http.StatusBadRequest)
			return
		}

		start := time.Now()
		payloads, tel, err := decodeUploaded(data, cfg.Detect.StrategyConfig())
		decodeDuration.Observe(time.Since(start).Seconds())

		for _, kind := range tel.BinarizersTried {
			binarizerAttempts.WithLabelValues(kind).Inc()
		}
		for _, reason := range tel.Failures {
			failuresTotal.WithLabelValues(string(reason)).Inc()
		}
		codesFound.Observe(float64(len(payloads)))

		if err != nil {
			var derr *qrscan.DetectError
			if errors.As(err, &derr) {
				httpRequestsTotal.WithLabelValues("bad_request").Inc()
				http.Error(w, derr.Error(), http.StatusBadRequest)
				return
			}
			httpRequestsTotal.WithLabelValues("internal_error").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for _, p := range payloads {
			erasuresCorrectedTotal.Add(float64(p.ErasuresCorrected))
		}

		httpRequestsTotal.WithLabelValues("ok").Inc()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Payloads  []qrscan.Payload `json:"payloads"`
			Telemetry any              `json:"telemetry"`
		}{Payloads: payloads, Telemetry: tel})
	}
}

// decodeUploaded decodes an uploaded image (any format the standard library's
// image registry recognizes) into an RGBA pixel buffer and runs it through
// the strategy controller, the same conversion scanFile does for files on
// disk.
func decodeUploaded(data []byte, cfg strategy.Config) ([]qrscan.Payload, strategy.Telemetry, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, strategy.Telemetry{}, &qrscan.DetectError{Reason: fmt.Sprintf("unrecognized image data: %v", err)}
	}

	pixels, w, h := toRGBA(img)
	return strategy.Detect(pixels, w, h, preprocess.FormatRGBA32, cfg)
}
