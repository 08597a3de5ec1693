package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

// Identity headers set by the authentication proxy in front of the API.
const (
	HeaderUserID      = "X-Usuario-Id"
	HeaderUserEmail   = "X-Usuario-Email"
	HeaderUserName    = "X-Usuario-Nombre"
	HeaderRoles       = "X-Roles"
	HeaderPermissions = "X-Permisos"
	HeaderActive      = "X-Usuario-Activo"
)

type actorKey struct{}

// Identity builds a vacation.Actor from the identity headers. A missing
// subject is 401; an inactive user is 403.
func (h *Handler) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error: "missing " + HeaderUserID,
				Code:  "unauthenticated",
			})
			return
		}

		actor := vacation.Actor{
			ID:          generic.EntityID(id),
			Email:       r.Header.Get(HeaderUserEmail),
			Name:        r.Header.Get(HeaderUserName),
			Roles:       splitList(r.Header.Get(HeaderRoles)),
			Permissions: splitList(r.Header.Get(HeaderPermissions)),
			Active:      true,
		}
		if v := r.Header.Get(HeaderActive); v != "" {
			active, err := strconv.ParseBool(v)
			actor.Active = err == nil && active
		}
		if !actor.Active {
			h.writeError(w, r, &vacation.ForbiddenError{ActorID: actor.ID, Action: "access", Reason: "user is inactive"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

// ActorFrom returns the caller set by Identity.
func ActorFrom(ctx context.Context) (vacation.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(vacation.Actor)
	return a, ok
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
