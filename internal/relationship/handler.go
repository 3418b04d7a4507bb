package relationship

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

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

// Register mounts claim and removal endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/properties/{propertyID}/claim", h.HandleClaim)
	r.Post("/properties/{propertyID}/relationships/remove", h.HandleRemove)
}

type claimResponse struct {
	OK           bool   `json:"ok"`
	Relationship string `json:"relationship"`
	AlreadyOwner bool   `json:"already_owner,omitempty"`
}

type removeRequest struct {
	IdentityID string `json:"identity_id" valid:"required,uuid"`
	Kind       string `json:"kind" valid:"required"`
}

// HandleClaim handles POST /properties/{propertyID}/claim.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	propertyID, err := id.ParsePropertyID(chi.URLParam(r, "propertyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	_, already, err := h.service.Claim(ctx, userID, propertyID)
	if err != nil {
		h.logger.WarnContext(ctx, "property claim failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", propertyID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claimResponse{
		OK:           true,
		Relationship: string(KindOwner),
		AlreadyOwner: already,
	})
}

// HandleRemove handles POST /properties/{propertyID}/relationships/remove.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	propertyID, err := id.ParsePropertyID(chi.URLParam(r, "propertyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[removeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	identity, err := id.ParseUserID(req.IdentityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Remove(ctx, userID, identity, propertyID, kind); err != nil {
		h.logger.WarnContext(ctx, "relationship removal failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", propertyID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
