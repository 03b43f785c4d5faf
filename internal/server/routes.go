package server

import (
	"net/http"

	"github.com/ternarybob/cogsim/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	jobHandler := handlers.NewJobHandler(s.service, s.logger)
	queueHandler := handlers.NewQueueHandler(s.service, s.logger)
	experimentHandler := handlers.NewExperimentHandler(s.service, s.logger)
	apiHandler := handlers.NewAPIHandler(s.service, s.config, s.logger)

	// Jobs
	mux.HandleFunc("/jobs", jobHandler.JobsHandler) // GET (list), POST (create)
	mux.HandleFunc("/jobs/", jobHandler.JobRoutes)  // GET /{id}, POST /{id}/run, POST /{id}/enqueue

	// Queue (exact patterns win over the /queue/ prefix)
	mux.HandleFunc("/queue/run-next", queueHandler.RunNextHandler)
	mux.HandleFunc("/queue/worker-step", queueHandler.RunNextHandler) // alias
	mux.HandleFunc("/queue/purge", queueHandler.PurgeHandler)
	mux.HandleFunc("/queue/", queueHandler.QueueRoutes) // GET /{id}, POST /{id}/cancel, POST /{id}/replay

	// Experiments
	mux.HandleFunc("/experiments/suggest", experimentHandler.SuggestHandler)

	// System
	mux.HandleFunc("/health/live", apiHandler.HealthLiveHandler)
	mux.HandleFunc("/health/ready", apiHandler.HealthReadyHandler)
	mux.HandleFunc("/health/backends", apiHandler.HealthBackendsHandler)
	mux.HandleFunc("/summary", apiHandler.SummaryHandler)
	mux.HandleFunc("/config/effective", apiHandler.EffectiveConfigHandler)
	mux.HandleFunc("/version", apiHandler.VersionHandler)

	return mux
}
