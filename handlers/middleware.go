package handlers

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tagvault/backend/config"
)

// BasicAuth gates every route behind HTTP Basic Auth when both a username and
// password are configured; without configuration the gate is disabled
// entirely. The configured password may be a bcrypt hash.
func BasicAuth(cfg config.Config, next http.Handler) http.Handler {
	if !cfg.BasicAuthEnabled() {
		return next
	}

	isBcrypt := strings.HasPrefix(cfg.BasicAuthPassword, "$2a$") ||
		strings.HasPrefix(cfg.BasicAuthPassword, "$2b$") ||
		strings.HasPrefix(cfg.BasicAuthPassword, "$2y$")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := parseBasicAuth(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.BasicAuthUser)) == 1

		var passOK bool
		if isBcrypt {
			passOK = bcrypt.CompareHashAndPassword([]byte(cfg.BasicAuthPassword), []byte(pass)) == nil
		} else {
			passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.BasicAuthPassword)) == 1
		}

		if !userOK || !passOK {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBasicAuth(header string) (string, string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Basic") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", false
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	return user, pass, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Secure Area", charset="UTF-8"`)
	http.Error(w, "Authentication required", http.StatusUnauthorized)
}
