package thimblehttp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danpasecinic/thimble"
)

type healthResponse struct {
	Status   string        `json:"status"`
	Services []serviceBody `json:"services,omitempty"`
}

type serviceBody struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthRoutes serves GET /live, /ready and /health for env. Failing checks
// answer 503.
func HealthRoutes(env *thimble.Environment) chi.Router {
	r := chi.NewRouter()

	r.Get("/live", func(w http.ResponseWriter, req *http.Request) {
		writeStatus(w, env.Live(req.Context()))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		writeStatus(w, env.Ready(req.Context()))
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		reports := env.Health(req.Context())

		resp := healthResponse{Status: string(thimble.HealthStatusUp)}
		for _, report := range reports {
			body := serviceBody{
				Name:      report.Name,
				Status:    string(report.Status),
				LatencyMS: report.Latency.Milliseconds(),
			}
			if report.Error != nil {
				body.Error = report.Error.Error()
				resp.Status = string(thimble.HealthStatusDown)
			}
			resp.Services = append(resp.Services, body)
		}

		code := http.StatusOK
		if resp.Status != string(thimble.HealthStatusUp) {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})

	return r
}

func writeStatus(w http.ResponseWriter, err error) {
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": string(thimble.HealthStatusDown),
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(thimble.HealthStatusUp)})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
