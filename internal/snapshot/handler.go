package snapshot

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/httputil"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
)

// Handler wires the read endpoints to the aggregator.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts snapshot endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/property-snapshot", h.HandleSnapshot)
	r.Get("/my-properties", h.HandleMyProperties)
}

type myPropertiesResponse struct {
	Properties []PropertySummary `json:"properties"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// HandleSnapshot handles GET /property-snapshot.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	propertyID, err := id.ParsePropertyID(r.URL.Query().Get("property_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	opts := Options{
		IncludeEPC:      boolFlag(r, "include_epc"),
		IncludeFlood:    boolFlag(r, "include_flood"),
		IncludePostcode: boolFlag(r, "include_postcode"),
	}

	snap, err := h.service.Build(ctx, userID, propertyID, opts)
	if err != nil {
		h.logger.WarnContext(ctx, "snapshot build failed",
			"request_id", requestcontext.RequestID(ctx),
			"property_id", propertyID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// HandleMyProperties handles GET /my-properties.
func (h *Handler) HandleMyProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter := relationship.ListFilter{
		Limit:  intParam(r, "limit", 20),
		Offset: intParam(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("relationship"); raw != "" {
		kind, err := relationship.ParseKind(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Kind = kind
	}

	summaries, total, err := h.service.MyProperties(ctx, userID, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "my-properties listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, myPropertiesResponse{
		Properties: summaries,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

func boolFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
