// File: web/controller.go
package web

import (
	"context"

	"github.com/Marianu08/trading-alg-rama01/pkg/app"
	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// AppController defines the interface the web package needs to drive the
// analysis pipeline. Implemented by the main application.
type AppController interface {
	RunAnalysis(ctx context.Context, opts app.RunOptions) (*app.Result, error)
	GetConfig() utilities.AppConfig
	Logger() *utilities.Logger
}

// runRequest is the POST /api/run body.
type runRequest struct {
	IAAgent          string `json:"ia_agent"`
	ShowSmartSummary bool   `json:"show_smart_summary"`
}

// keyRequest is the POST /api/keys body. Secret is only meaningful for the
// exchange key; LLM providers use a bare API key.
type keyRequest struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Secret string `json:"secret,omitempty"`
}
