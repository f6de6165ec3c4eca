// Command resbench drives a Zipf-distributed asset request workload against a
// guarded resource cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	pmet "github.com/IvanBrykalov/rescache/metrics/prom"
	"github.com/IvanBrykalov/rescache/resource"
)

// asset stands in for a decoded texture.
type asset struct {
	name string
	pix  []byte
}

func main() {
	// ---- Flags ----
	var (
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys     = flag.Int("keys", 10_000, "number of distinct assets")
		zipfS    = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV    = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		latency  = flag.Duration("latency", time.Millisecond, "simulated loader latency")
		failPct  = flag.Int("fail", 0, "percentage of loader calls that fail [0..100]")
		assetLen = flag.Int("size", 4096, "bytes per simulated asset")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	)
	flag.Parse()

	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Info("pprof: serving", zap.String("addr", *pprofAddr))
			log.Error("pprof server", zap.Error(http.ListenAndServe(*pprofAddr, nil)))
		}()
	}

	// ---- Prometheus metrics ----
	metrics := pmet.New(nil, "rescache", "bench", nil)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("metrics: serving", zap.String("addr", *metricsAddr))
			log.Error("metrics server", zap.Error(http.ListenAndServe(*metricsAddr, mux)))
		}()
	}

	// ---- Loader: sleeps, then fails a fraction of calls ----
	var loaderCalls, loaderErrs uint64
	errInjected := errors.New("injected load failure")
	var rmu sync.Mutex
	lr := rand.New(rand.NewSource(*seed))
	loader := resource.LoaderFunc[string, *asset](func(name string) (*asset, error) {
		atomic.AddUint64(&loaderCalls, 1)
		time.Sleep(*latency)
		rmu.Lock()
		fail := lr.Intn(100) < *failPct
		rmu.Unlock()
		if fail {
			atomic.AddUint64(&loaderErrs, 1)
			return nil, errInjected
		}
		return &asset{name: name, pix: make([]byte, *assetLen)}, nil
	})

	g := resource.Guard(resource.New[string, *asset](loader, resource.Options{Metrics: metrics}))
	defer func() { _ = g.Close() }()

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var total, failed uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for ctx.Err() == nil {
				name := "tex:" + strconv.FormatUint(localZipf.Uint64(), 10)
				atomic.AddUint64(&total, 1)
				h, err := g.Load(ctx, name)
				if err != nil {
					atomic.AddUint64(&failed, 1)
					continue
				}
				_ = h.Value().pix[0]
				_ = h.Release()
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	calls := atomic.LoadUint64(&loaderCalls)
	hitRate := 0.0
	if ops > 0 {
		hitRate = float64(ops-calls) / float64(ops) * 100
	}

	fmt.Printf("keys=%d workers=%d dur=%v seed=%d latency=%v fail=%d%%\n",
		*keys, workersN, elapsed, seedBase, *latency, *failPct)
	fmt.Printf("requests=%d (%.0f req/s)  failed=%d\n",
		ops, float64(ops)/elapsed.Seconds(), atomic.LoadUint64(&failed))
	fmt.Printf("loader calls=%d  loader errors=%d  hit-rate=%.2f%%\n",
		calls, atomic.LoadUint64(&loaderErrs), hitRate)
	fmt.Printf("resident=%d\n", g.Len())
}
