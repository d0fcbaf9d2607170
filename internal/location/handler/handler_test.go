package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"civreg/internal/location"
	"civreg/internal/location/store"
	"civreg/internal/platform/logger"
	id "civreg/pkg/domain"
	"civreg/pkg/requestcontext"
)

func newTestRouter(st Store, scopes ...string) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithActor(req.Context(), id.UserID{1}, scopes)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	New(st, logger.New()).Register(r)
	return r
}

func TestLocationRoundTrip(t *testing.T) {
	st := store.NewMemory()
	router := newTestRouter(st, location.ScopeWrite)
	locationID := uuid.NewString()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/locations/"+locationID,
		strings.NewReader(`{"name":"Ibombo District Office","locationType":"ADMIN_STRUCTURE"}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d (%s)", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/locations/"+locationID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d (%s)", rec.Code, rec.Body)
	}

	// A root location serializes parentId as an explicit null.
	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if raw["id"] != locationID || raw["name"] != "Ibombo District Office" || raw["locationType"] != "ADMIN_STRUCTURE" {
		t.Fatalf("response = %v", raw)
	}
	if parent, present := raw["parentId"]; !present || parent != nil {
		t.Fatalf("parentId = %v (present=%t), want explicit null", parent, present)
	}

	parsed, err := id.ParseLocationID(locationID)
	if err != nil {
		t.Fatalf("parse location id: %v", err)
	}
	if !st.IsAdminArea(parsed) {
		t.Fatal("ADMIN_STRUCTURE location missing from administrative areas")
	}
}

func TestLocationPut(t *testing.T) {
	t.Run("requires the write scope", func(t *testing.T) {
		router := newTestRouter(store.NewMemory())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/v1/locations/"+uuid.NewString(),
			strings.NewReader(`{"name":"Office","locationType":"CRVS_OFFICE"}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("rejects a location that is its own parent", func(t *testing.T) {
		router := newTestRouter(store.NewMemory(), location.ScopeWrite)
		locationID := uuid.NewString()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/v1/locations/"+locationID,
			strings.NewReader(`{"name":"Office","locationType":"CRVS_OFFICE","parentId":"`+locationID+`"}`))
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("re-typing a location updates the admin areas mirror", func(t *testing.T) {
		st := store.NewMemory()
		router := newTestRouter(st, location.ScopeWrite)
		locationID := uuid.NewString()
		parsed, err := id.ParseLocationID(locationID)
		if err != nil {
			t.Fatalf("parse location id: %v", err)
		}

		for _, body := range []string{
			`{"name":"Ibombo","locationType":"ADMIN_STRUCTURE"}`,
			`{"name":"Ibombo","locationType":"HEALTH_FACILITY"}`,
		} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/locations/"+locationID, strings.NewReader(body)))
			if rec.Code != http.StatusOK {
				t.Fatalf("put status = %d (%s)", rec.Code, rec.Body)
			}
		}

		if st.IsAdminArea(parsed) {
			t.Fatal("health facility still listed as administrative area")
		}
	})
}

func TestLocationList(t *testing.T) {
	st := store.NewMemory()
	router := newTestRouter(st, location.ScopeWrite)

	for _, name := range []string{"Zobwe", "Afue", "Ilanga"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/v1/locations/"+uuid.NewString(),
			strings.NewReader(`{"name":"`+name+`","locationType":"ADMIN_STRUCTURE"}`))
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("put %s: status = %d", name, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/locations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var out []LocationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("listed %d locations, want 3", len(out))
	}
	if out[0].Name != "Afue" || out[2].Name != "Zobwe" {
		t.Fatalf("list not sorted by name: %s, %s, %s", out[0].Name, out[1].Name, out[2].Name)
	}
}

func TestLocationGetMissing(t *testing.T) {
	router := newTestRouter(store.NewMemory())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/locations/"+uuid.NewString(), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
