package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"salonbook/internal/config"
)

const (
	apiKeyHeaderDefault   = "X-API-Key"
	apiExtraHeaderDefault = "X-API-Extra"
	permReadBookings      = "read:bookings"
	permExportBookings    = "export:bookings"
	clientKeyUnknown      = "unknown"
)

var (
	errMissingKey       = errors.New("missing api key headers")
	errInvalidKey       = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
)

// HTTPAuth checks the API key pair on admin routes.
type HTTPAuth struct {
	cfg     config.APIAuthConfig
	clients map[string]config.APIClientKey
}

func NewHTTPAuth(cfg config.APIAuthConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

// Require guards next with the key check and permission.
func (a *HTTPAuth) Require(permission string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if err := a.check(r, permission); err != nil {
			status := http.StatusUnauthorized
			code := "unauthorized"
			if errors.Is(err, errPermissionDenied) {
				status = http.StatusForbidden
				code = "forbidden"
			}
			writeError(w, status, code, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) check(r *http.Request, permission string) error {
	apiKeyHeader := strings.TrimSpace(a.cfg.HeaderAPIKey)
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.TrimSpace(a.cfg.HeaderExtra)
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	extra := strings.TrimSpace(r.Header.Get(extraHeader))
	if apiKey == "" || extra == "" {
		return errMissingKey
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidKey
	}

	// A key without explicit permissions may do everything.
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == permission {
			return nil
		}
	}
	return errPermissionDenied
}
