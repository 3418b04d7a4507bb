package watchlist

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/httputil"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts watchlist endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/watchlist/add", h.HandleAdd)
	r.Post("/watchlist/remove", h.HandleRemove)
}

type watchlistRequest struct {
	PropertyID string `json:"property_id" valid:"required,uuid"`
}

type addResponse struct {
	OK            bool   `json:"ok"`
	Relationship  string `json:"relationship"`
	AlreadyMember bool   `json:"already_member,omitempty"`
}

type removeResponse struct {
	OK bool `json:"ok"`
}

// HandleAdd handles POST /watchlist/add.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := httputil.DecodeJSON[watchlistRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	propertyID, err := id.ParsePropertyID(req.PropertyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	already, err := h.service.Add(ctx, userID, propertyID)
	if err != nil {
		h.logger.WarnContext(ctx, "watchlist add failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", propertyID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, addResponse{
		OK:            true,
		Relationship:  string(relationship.KindInterested),
		AlreadyMember: already,
	})
}

// HandleRemove handles POST /watchlist/remove.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := httputil.DecodeJSON[watchlistRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	propertyID, err := id.ParsePropertyID(req.PropertyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Remove(ctx, userID, propertyID); err != nil {
		h.logger.WarnContext(ctx, "watchlist remove failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", propertyID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, removeResponse{OK: true})
}
