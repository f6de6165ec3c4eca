// Command resdemo preloads the assets listed in a YAML manifest through the
// texture and font caches, repeats the loads to show memoization, and prints
// the cache counters. Metrics can also be scraped over HTTP.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/rescache/internal/manifest"
)

func main() {
	// ---- Flags ----
	var (
		root         = flag.String("root", ".", "asset root directory")
		manifestPath = flag.String("manifest", "assets.yml", "YAML asset manifest; the asset paths it lists are relative to -root")
		repeat       = flag.Int("repeat", 3, "loads per asset (every load after the first is a cache hit)")
		metricsAddr  = flag.String("http", "", "serve Prometheus metrics at addr (e.g. :8080); empty = disabled")
		verbose      = flag.Bool("v", false, "development logging (debug level, console encoder)")
	)
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		log.Fatal("load manifest", zap.String("path", *manifestPath), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Info("metrics: serving", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	a := newAssets(os.DirFS(*root), reg, log)
	if err := a.preload(m, *repeat, os.Stderr); err != nil {
		// Individual failures are already logged by the managers.
		log.Warn("some assets failed to load", zap.Error(err))
	}
	log.Info("preloaded",
		zap.Int("textures", a.textures.Len()),
		zap.Int("fonts", a.fonts.Len()),
		zap.Int("repeat", *repeat))

	if err := report(os.Stdout, reg); err != nil {
		log.Error("report", zap.Error(err))
	}
	if err := a.Close(); err != nil {
		log.Error("close caches", zap.Error(err))
	}

	if *metricsAddr != "" {
		log.Info("metrics stay available; interrupt to exit")
		select {}
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
