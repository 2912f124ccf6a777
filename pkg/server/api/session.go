package api

import (
	"net/http"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
)

// sessionHandler is called with the resolved session id
type sessionHandler func(w http.ResponseWriter, r *http.Request, sessionID string)

// sessionMiddleware resolves the session from the cookie. Unknown or expired
// sessions are replaced by a new one. The cookie is refreshed on every request.
func (s *Server) sessionMiddleware(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(s.sessionCfg.CookieName); err == nil {
			id = c.Value
		}
		d, err := s.svc.Session(r.Context(), id)
		if err != nil {
			s.log.Error("could not resolve session", log.ErrorField(err))
			writeError(w, err)
			return
		}
		if d.ID != id {
			s.log.Debug("issuing session cookie", log.String("session_id", d.ID))
		}
		http.SetCookie(w, session.CreateCookieForSession(d, s.sessionCfg))
		next(w, r, d.ID)
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(s.sessionCfg.CookieName)
	if err == nil && c.Value != "" {
		if err := s.svc.DeleteSession(r.Context(), c.Value); err != nil {
			writeError(w, err)
			return
		}
	}
	expired := &http.Cookie{
		Name:     s.sessionCfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.sessionCfg.Secure,
		MaxAge:   -1,
	}
	http.SetCookie(w, expired)
	w.WriteHeader(http.StatusNoContent)
}
