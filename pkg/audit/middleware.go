// Package audit records who called the management API's mutating endpoints.
package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tendant/simple-usermgmt/pkg/client"
	"github.com/tendant/simple-usermgmt/pkg/events"
)

// EventType is the type of the events published for audited requests.
const EventType = "audit.api_request"

// Middleware publishes an audit event after every mutating request.
type Middleware struct {
	publisher events.Publisher
}

func NewMiddleware(publisher events.Publisher) *Middleware {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Middleware{publisher: publisher}
}

// AuditAuthMiddleware must run after client.AuthUserMiddleware so the caller
// is known. GET, HEAD and OPTIONS requests are not audited.
func (m *Middleware) AuditAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := map[string]string{
			"method": r.Method,
			"uri":    r.RequestURI,
			"status": strconv.Itoa(status),
		}
		actor := uuid.Nil
		if u, ok := client.GetAuthUser(r.Context()); ok {
			actor = u.UserUuid
			attrs["user"] = u.UserId
		} else {
			attrs["message"] = "No jwt token"
		}

		events.Emit(context.WithoutCancel(r.Context()), m.publisher, events.New(EventType, actor, attrs))
	})
}
