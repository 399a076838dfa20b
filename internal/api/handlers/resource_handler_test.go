package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/discoverhealth/backend/internal/api/handlers"
	"github.com/discoverhealth/backend/internal/api/middleware"
	"github.com/discoverhealth/backend/internal/domain/entities"
	apperrors "github.com/discoverhealth/backend/pkg/errors"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestResourceHandler_ListResources(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)

	service.On("ListByRegion", mock.Anything, "London").Return([]*entities.Resource{
		{ID: 1, Name: "St Thomas Hospital", Region: "London", Recommendations: 2, Reviews: []string{"Great"}},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/resources?region=London", nil)
	w := httptest.NewRecorder()
	handler.ListResources(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resources []map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resources))
	require.Len(t, resources, 1)
	assert.Equal(t, "St Thomas Hospital", resources[0]["name"])
	assert.Equal(t, []interface{}{"Great"}, resources[0]["reviews"])
	service.AssertExpectations(t)
}

func TestResourceHandler_ListResources_EmptyIsArray(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)
	service.On("ListByRegion", mock.Anything, "Atlantis").Return(nil, nil)

	w := httptest.NewRecorder()
	handler.ListResources(w, httptest.NewRequest(http.MethodGet, "/api/resources?region=Atlantis", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestResourceHandler_ListResources_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing region", apperrors.NewValidationError("Region query parameter is required"), http.StatusBadRequest, "Region query parameter is required"},
		{"storage failure", apperrors.NewInternalError("failed to list resources", errors.New("disk I/O error")), http.StatusInternalServerError, "Failed to retrieve resources"},
		{"untyped failure", errors.New("boom"), http.StatusInternalServerError, "Failed to retrieve resources"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockResourceService)
			handler := handlers.NewResourceHandler(service)
			service.On("ListByRegion", mock.Anything, "").Return(nil, tt.err)

			w := httptest.NewRecorder()
			handler.ListResources(w, httptest.NewRequest(http.MethodGet, "/api/resources", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["error"])
			assert.NotContains(t, w.Body.String(), "disk")
		})
	}
}

func TestResourceHandler_CreateResource(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)

	service.On("Create", mock.Anything, mock.MatchedBy(func(d entities.ResourceDraft) bool {
		return d.Name == "St Thomas Hospital" && d.Lat.Valid && d.Lat.Value == 51.498 && d.Lon.Valid && d.Lon.Value == -0.1195
	})).Return(int64(12), nil)

	body := `{"name":"St Thomas Hospital","category":"Hospital","country":"UK","region":"London","lat":"51.498","lon":-0.1195,"description":"NHS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/resources", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.CreateResource(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":12}`, w.Body.String())
	service.AssertExpectations(t)
}

func TestResourceHandler_CreateResource_InvalidBody(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/resources", strings.NewReader(`{"name":`))
	w := httptest.NewRecorder()
	handler.CreateResource(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResourceHandler_CreateResource_ValidationMessage(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)
	service.On("Create", mock.Anything, mock.Anything).
		Return(int64(0), apperrors.NewValidationError("Missing fields: name, category"))

	w := httptest.NewRecorder()
	handler.CreateResource(w, httptest.NewRequest(http.MethodPost, "/api/resources", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing fields: name, category", decodeBody(t, w)["error"])
}

func TestResourceHandler_RecommendResource(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		err     error
		status  int
		message string
	}{
		{"success", "3", nil, http.StatusOK, "Recommendation added"},
		{"not found", "99", apperrors.NewNotFoundError("Resource not found"), http.StatusNotFound, "Resource not found"},
		{"storage failure", "3", apperrors.NewInternalError("update failed", errors.New("locked")), http.StatusInternalServerError, "Failed to recommend resource"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockResourceService)
			handler := handlers.NewResourceHandler(service)
			service.On("Recommend", mock.Anything, mock.AnythingOfType("int64")).Return(tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/resources/"+tt.id+"/recommend", nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()
			handler.RecommendResource(w, req)

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			if tt.err == nil {
				assert.Equal(t, tt.message, body["message"])
			} else {
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

func TestResourceHandler_InvalidResourceID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-4", "1.5", ""} {
		t.Run(id, func(t *testing.T) {
			service := new(MockResourceService)
			handler := handlers.NewResourceHandler(service)

			req := httptest.NewRequest(http.MethodPost, "/api/resources/x/recommend", nil)
			req.SetPathValue("id", id)
			w := httptest.NewRecorder()
			handler.RecommendResource(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid resource id", decodeBody(t, w)["error"])
			service.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything)
		})
	}
}

func TestResourceHandler_AddReview(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)
	service.On("AddReview", mock.Anything, int64(5), "Very clean", int64(8)).Return(int64(31), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/resources/5/reviews", strings.NewReader(`{"review":"Very clean"}`))
	req.SetPathValue("id", "5")
	req = req.WithContext(middleware.WithUserID(req.Context(), 8))
	w := httptest.NewRecorder()
	handler.AddReview(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":31,"message":"Review added"}`, w.Body.String())
	service.AssertExpectations(t)
}

func TestResourceHandler_AddReview_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"empty text", apperrors.NewValidationError("Review text is required"), http.StatusBadRequest, "Review text is required"},
		{"unknown resource", apperrors.NewNotFoundError("Resource not found"), http.StatusNotFound, "Resource not found"},
		{"storage failure", apperrors.NewInternalError("insert failed", errors.New("io")), http.StatusInternalServerError, "Failed to add review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockResourceService)
			handler := handlers.NewResourceHandler(service)
			service.On("AddReview", mock.Anything, int64(5), mock.Anything, int64(8)).Return(int64(0), tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/resources/5/reviews", strings.NewReader(`{"review":" "}`))
			req.SetPathValue("id", "5")
			req = req.WithContext(middleware.WithUserID(req.Context(), 8))
			w := httptest.NewRecorder()
			handler.AddReview(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["error"])
		})
	}
}

func TestResourceHandler_GetResource(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)
	service.On("GetByID", mock.Anything, int64(4)).Return(&entities.Resource{ID: 4, Name: "Guy's Hospital"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/resources/4", nil)
	req.SetPathValue("id", "4")
	w := httptest.NewRecorder()
	handler.GetResource(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Guy's Hospital", body["name"])
	assert.Equal(t, []interface{}{}, body["reviews"])
}

func TestResourceHandler_NearbyResources(t *testing.T) {
	service := new(MockResourceService)
	handler := handlers.NewResourceHandler(service)
	service.On("Nearby", mock.Anything, 51.5, -0.12, 10.0).Return([]entities.ResourceDistance{
		{Resource: &entities.Resource{ID: 1, Name: "St Thomas Hospital"}, DistanceKm: 0.3},
	}, nil)

	w := httptest.NewRecorder()
	handler.NearbyResources(w, httptest.NewRequest(http.MethodGet, "/api/resources/nearby?lat=51.5&lon=-0.12", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var results []map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, 0.3, results[0]["distance_km"])
	service.AssertExpectations(t)
}

func TestResourceHandler_NearbyResources_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing lat", "lon=1"},
		{"word lon", "lat=1&lon=east"},
		{"zero radius", "lat=1&lon=1&radius_km=0"},
		{"bad radius", "lat=1&lon=1&radius_km=far"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockResourceService)
			handler := handlers.NewResourceHandler(service)

			w := httptest.NewRecorder()
			handler.NearbyResources(w, httptest.NewRequest(http.MethodGet, "/api/resources/nearby?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			service.AssertNotCalled(t, "Nearby", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
