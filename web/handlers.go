// File: web/handlers.go
package web

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Marianu08/trading-alg-rama01/pkg/app"
)

// keyFileNames are the credential files the API manages under web.data_dir.
var keyFileNames = []string{"kraken", "groq", "gemini", "openai"}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func healthHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		cfg := controller.GetConfig()
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"app":     cfg.AppName,
			"version": cfg.Version,
		})
	}
}

// runHandler triggers one full analysis. A missing exchange key is a client
// error; a run abort maps to 500 with the error-only payload.
func runHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req runRequest
		if r.Body != nil {
			// An empty body means "run with config defaults".
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}
		cfg := controller.GetConfig()
		if cfg.Kraken.APIKey == "" && !keyFileExists(cfg.Web.DataDir, "kraken") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kraken API key not configured"})
			return
		}

		result, err := controller.RunAnalysis(r.Context(), app.RunOptions{
			ShowSmartSummary: req.ShowSmartSummary,
			Provider:         strings.ToLower(req.IAAgent),
		})
		if err != nil {
			controller.Logger().LogError("api: run failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, app.ErrorPayload(err))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func keysStatusHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		dataDir := controller.GetConfig().Web.DataDir
		status := make(map[string]bool, len(keyFileNames))
		for _, name := range keyFileNames {
			status[name] = keyFileExists(dataDir, name)
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// saveKeyHandler stores a credential file: API key on the first line, secret
// on the second when present.
func saveKeyHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req keyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		name := strings.ToLower(strings.TrimSpace(req.Name))
		if !validKeyName(name) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown key name"})
			return
		}
		if req.Key == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key must not be empty"})
			return
		}

		dataDir := controller.GetConfig().Web.DataDir
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			controller.Logger().LogError("api: create key dir: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not store key"})
			return
		}
		content := req.Key + "\n"
		if req.Secret != "" {
			content += req.Secret + "\n"
		}
		if err := os.WriteFile(keyFilePath(dataDir, name), []byte(content), 0o600); err != nil {
			controller.Logger().LogError("api: write key file for %s: %v", name, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not store key"})
			return
		}
		controller.Logger().LogInfo("api: stored %s key", name)
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "name": name})
	}
}

func keyFilePath(dataDir, name string) string {
	return filepath.Join(dataDir, name+".key")
}

func keyFileExists(dataDir, name string) bool {
	info, err := os.Stat(keyFilePath(dataDir, name))
	return err == nil && !info.IsDir()
}

func validKeyName(name string) bool {
	for _, known := range keyFileNames {
		if name == known {
			return true
		}
	}
	return false
}
