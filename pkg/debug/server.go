package debug

import (
	"net/http"
	"sync"
	"sync/atomic"

	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const listenAddr string = ":6060"

// StartDebugServer serves pprof, the Prometheus metrics (including the energy
// readings of the outlets) and the probes. The returned value must be set to
// true once the device is reachable.
func StartDebugServer(wg *sync.WaitGroup) (*http.Server, *atomic.Value) {
	isReady := &atomic.Value{}
	isReady.Store(false)
	srv := &http.Server{Addr: listenAddr, Handler: newMux(isReady)}

	go func() {
		defer wg.Done() // Let main know we are done cleaning up

		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Error on sidecar server for debugging")
		}
	}()

	return srv, isReady
}

func newMux(isReady *atomic.Value) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	// Readines and liveness endpoints.
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/readyz", readyz(isReady))
	// pprof endpoints are registered on the default mux through the import.
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return mux
}

// healthz is a liveness probe.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// readyz is a readiness probe.
func readyz(isReady *atomic.Value) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if isReady == nil || !isReady.Load().(bool) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
