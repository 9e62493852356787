package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/iq180/internal/api/apierr"
	"github.com/mcoot/iq180/internal/middleware"
)

// Recovery turns handler panics into INTERNAL_ERROR responses
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, writePanicResponse)
}

func writePanicResponse(w http.ResponseWriter, r *http.Request, _ any) {
	// An upgraded websocket connection no longer speaks HTTP
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
