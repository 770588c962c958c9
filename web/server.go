// File: web/server.go
package web

import (
	"context"
	"net/http"
	"time"
)

// StartWebServer initializes and starts the HTTP API server in a new
// goroutine, shutting it down gracefully when the context is cancelled.
func StartWebServer(ctx context.Context, controller AppController) {
	cfg := controller.GetConfig().Web

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", healthHandler(controller))
	mux.HandleFunc("/api/run", runHandler(controller))
	mux.HandleFunc("/api/keys/status", keysStatusHandler(controller))
	mux.HandleFunc("/api/keys", saveKeyHandler(controller))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      withCORS(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // a full run makes many exchange round trips
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		controller.Logger().LogInfo("Starting API server on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			controller.Logger().LogFatal("API server failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		controller.Logger().LogInfo("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			controller.Logger().LogError("API server graceful shutdown failed: %v", err)
		}
	}()
}

// withCORS allows browser clients from any origin and answers preflight
// requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
