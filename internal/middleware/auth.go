package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/moltspace/moltspace/internal/handlers"
	"github.com/moltspace/moltspace/internal/logging"
	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

// AgentAuthenticator resolves an API key to its agent.
type AgentAuthenticator interface {
	AuthenticateKey(ctx context.Context, apiKey string) (*models.Agent, error)
}

// Auth resolves the X-API-Key header, when present, and attaches the agent
// to the request context. Requests without a key pass through anonymously;
// handlers that need a caller use RequireAgent.
type Auth struct {
	agents AgentAuthenticator
}

func NewAuth(agents AgentAuthenticator) *Auth {
	return &Auth{agents: agents}
}

func (a *Auth) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		agent, err := a.agents.AuthenticateKey(r.Context(), apiKey)
		if errors.Is(err, services.ErrInvalidAPIKey) {
			writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		if err != nil {
			logging.Error("Failed to authenticate API key", map[string]interface{}{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetAgentInContext(r.Context(), agent)))
	})
}

// RequireAgent rejects requests that did not authenticate.
func RequireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetAgentFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
