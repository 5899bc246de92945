package api

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/strandcast/controlroom/internal/config"
)

// Role identifies an authenticated API caller class.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

type credentials struct {
	username string
	password string
}

type authConfig struct {
	admin    credentials
	operator credentials
}

// loadAuthFromEnv reads API credentials from the environment. Secrets
// support the *_FILE convention. When no credentials are configured, auth
// is disabled and every request passes.
func loadAuthFromEnv() *authConfig {
	return &authConfig{
		admin: credentials{
			username: resolveOrEmpty("CONTROLROOM_ADMIN_USER"),
			password: resolveOrEmpty("CONTROLROOM_ADMIN_PASS"),
		},
		operator: credentials{
			username: resolveOrEmpty("CONTROLROOM_OPERATOR_USER"),
			password: resolveOrEmpty("CONTROLROOM_OPERATOR_PASS"),
		},
	}
}

// resolveOrEmpty treats an unreadable secret file as unset credentials
// rather than crashing the API.
func resolveOrEmpty(envName string) string {
	v, err := config.ResolveSecret(envName)
	if err != nil {
		log.Printf("auth: %v", err)
		return ""
	}
	return v
}

func (a *authConfig) enabled() bool {
	return a.admin.username != "" || a.operator.username != ""
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (a *authConfig) roleFor(user, pass string) (Role, bool) {
	if a.admin.username != "" && secureCompare(user, a.admin.username) && secureCompare(pass, a.admin.password) {
		return RoleAdmin, true
	}
	if a.operator.username != "" && secureCompare(user, a.operator.username) && secureCompare(pass, a.operator.password) {
		return RoleOperator, true
	}
	return "", false
}

// requireRole wraps a handler with basic auth, allowing only the named
// roles. RoleAdmin always satisfies an operator requirement.
func (s *Server) requireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.enabled() {
			next(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}
		role, ok := s.auth.roleFor(user, pass)
		if !ok {
			unauthorized(w)
			return
		}

		if role == RoleAdmin {
			next(w, r)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				next(w, r)
				return
			}
		}
		http.Error(w, "forbidden", http.StatusForbidden)
	}
}

func (s *Server) requireAnyRole(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(next, RoleAdmin, RoleOperator)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="controlroom"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
