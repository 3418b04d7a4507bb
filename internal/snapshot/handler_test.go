package snapshot

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/Stratton1/ppukv6-0-sub001/internal/external"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	id "github.com/Stratton1/ppukv6-0-sub001/pkg/domain"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/requestcontext"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/testutil"
)

func newHandlerFixture(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t, external.Clients{
		EPC:      external.MockEPCClient{Latency: time.Millisecond},
		Flood:    external.MockFloodClient{Latency: time.Millisecond},
		Postcode: external.MockPostcodeClient{Latency: time.Millisecond},
	})
	r := chi.NewRouter()
	NewHandler(f.svc, slog.New(slog.DiscardHandler)).Register(r)
	return f, r
}

func asUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

func TestHandleSnapshot(t *testing.T) {
	f, router := newHandlerFixture(t)
	f.addDocument(t, f.owner, property.DocumentPrivate)
	f.addDocument(t, f.owner, property.DocumentPublic)

	t.Run("requires auth", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/property-snapshot?property_id="+f.propertyID.String())
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("malformed property id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/property-snapshot?property_id=none-such")
		rr := testutil.DoRequest(router, asUser(req, f.owner))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("no relationship", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/property-snapshot?property_id="+f.propertyID.String())
		rr := testutil.DoRequest(router, asUser(req, id.NewUserID()))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("owner sees everything", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/property-snapshot?property_id="+f.propertyID.String())
		rr := testutil.DoRequest(router, asUser(req, f.owner))

		testutil.AssertStatusOK(t, rr)
		snap := testutil.UnmarshalResponse[Snapshot](t, rr)
		assert.Equal(t, "owner", string(snap.Relationship))
		assert.Len(t, snap.Documents, 2)
		assert.Equal(t, 2, snap.DocumentCount)
		assert.Nil(t, snap.External.EPC, "external data is opt-in")
	})

	t.Run("interested sees the public subset", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet,
			"/property-snapshot?property_id="+f.propertyID.String()+"&include_epc=true")
		rr := testutil.DoRequest(router, asUser(req, f.interested))

		testutil.AssertStatusOK(t, rr)
		snap := testutil.UnmarshalResponse[Snapshot](t, rr)
		assert.Equal(t, "interested", string(snap.Relationship))
		assert.Len(t, snap.Documents, 1)
		assert.Equal(t, 1, snap.DocumentCount)
		assert.NotNil(t, snap.External.EPC)
	})
}

func TestHandleMyProperties(t *testing.T) {
	f, router := newHandlerFixture(t)

	t.Run("requires auth", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/my-properties"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("invalid relationship filter", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/my-properties?relationship=landlord")
		rr := testutil.DoRequest(router, asUser(req, f.owner))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("lists held properties", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/my-properties?limit=5")
		rr := testutil.DoRequest(router, asUser(req, f.owner))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[myPropertiesResponse](t, rr)
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, 5, resp.Limit)
		if assert.Len(t, resp.Properties, 1) {
			assert.Equal(t, f.propertyID, resp.Properties[0].Property.ID)
			assert.Equal(t, "owner", string(resp.Properties[0].Relationship))
		}
	})
}
