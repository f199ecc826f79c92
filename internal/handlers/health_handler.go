package handlers

import (
	"context"
	"net/http"
	"time"

	"careercoach/ai/internal/config"
	"careercoach/ai/internal/llm"
	"careercoach/ai/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`  // "ready" | "not_ready"
	Service string                    `json:"service"` // Service name
	Checks  map[string]ReadinessCheck `json:"checks"`  // Individual check results
}

// TemplateSource reports loaded prompt modes; prompts.PromptManager satisfies it.
type TemplateSource interface {
	Modes() []string
}

// Pinger checks a backing store; history.GormStore satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	provider      llm.Provider
	promptManager TemplateSource
	config        *config.Config
	database      Pinger
}

func NewHealthHandler(provider llm.Provider, promptManager TemplateSource, cfg *config.Config, database Pinger) *HealthHandler {
	return &HealthHandler{
		provider:      provider,
		promptManager: promptManager,
		config:        cfg,
		database:      database,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "careercoach-ai",
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := make(map[string]ReadinessCheck)
	allChecksPass := true

	record := func(name string, ok bool, message string) {
		if ok {
			checks[name] = ReadinessCheck{Status: "ok"}
			return
		}
		checks[name] = ReadinessCheck{Status: "failed", Message: message}
		allChecksPass = false
	}

	record("provider", handler.provider != nil, "AI provider not initialized")

	if handler.promptManager == nil {
		record("prompt_manager", false, "Prompt manager not initialized")
	} else {
		record("prompt_manager", len(handler.promptManager.Modes()) > 0, "No prompt templates loaded")
	}

	record("configuration", handler.config != nil, "Configuration not loaded")

	if handler.database == nil {
		record("database", false, "Database not initialized")
	} else {
		ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
		defer cancel()
		if err := handler.database.Ping(ctx); err != nil {
			record("database", false, err.Error())
		} else {
			record("database", true, "")
		}
	}

	response := ReadinessResponse{
		Service: "careercoach-ai",
		Checks:  checks,
	}

	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}
