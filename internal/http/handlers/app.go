package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
)

// App is the handler container for the public API surface.
type App struct {
	Jobs   domain.JobRepository
	Ledger domain.Ledger
	Logger infra.Logger
}

// NewApp wires the handler dependencies.
func NewApp(jobs domain.JobRepository, ledger domain.Ledger, logger infra.Logger) *App {
	return &App{Jobs: jobs, Ledger: ledger, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
