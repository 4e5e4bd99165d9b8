package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railway/internal/cache"
	intconfig "railway/internal/config"
	"railway/internal/domain/models"
	"railway/internal/repositories"
	"railway/internal/services"
)

const (
	testSecret = "test-secret"
	testDate   = "2024-12-01"
)

type testServer struct {
	r     *gin.Engine
	store *repositories.MemoryStore
	p1    models.Passenger
	p2    models.Passenger
}

func newTestServer(t *testing.T, mutate func(*intconfig.Env)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repositories.NewMemoryStore()
	store.AddTrain("G27", "北京南", "济南西", "上海虹桥")
	store.SetFare("G27", "北京南", "济南西", models.SeatSecondClass, models.Yuan(185), 406)
	store.SetFare("G27", "济南西", "上海虹桥", models.SeatSecondClass, models.Yuan(368), 912)
	store.SetInventory("G27", "北京南", "济南西", models.SeatSecondClass, testDate, 10)
	store.SetInventory("G27", "济南西", "上海虹桥", models.SeatSecondClass, testDate, 10)
	p1 := store.AddPassenger(models.Passenger{OwnerID: 7, Name: "张三", Phone: "13800138000", DiscountType: "成人"})
	p2 := store.AddPassenger(models.Passenger{OwnerID: 7, Name: "李四", Phone: "13900139000", DiscountType: "成人"})

	orders := services.NewOrderService(store, nil, nil, 20*time.Minute)
	passengers := services.PassengerService{Store: store}

	env := intconfig.Env{JWTSecret: testSecret, BookingRateLimit: 100}
	if mutate != nil {
		mutate(&env)
	}
	r := NewRouter(env, Deps{
		Orders:     orders,
		Passengers: passengers,
		Docs:       services.DocsService{Orders: orders},
		Counter:    cache.NewMemoryCounter(),
	})
	return &testServer{r: r, store: store, p1: p1, p2: p2}
}

func token(t *testing.T, userID int64) string {
	return tokenWithRole(t, userID, "user")
}

func tokenWithRole(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) orderBody() gin.H {
	return gin.H{
		"trainNo":     "G27",
		"origin":      "北京南",
		"destination": "上海虹桥",
		"travelDate":  testDate,
		"passengers": []gin.H{
			{"passengerId": s.p1.ID, "seatClass": "second_class"},
			{"passengerId": s.p2.ID, "seatClass": "second_class"},
		},
	}
}

func TestOrders_CreateGetCancel(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/orders", 7, s.orderBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	receipt := decode(t, w)
	assert.Equal(t, 1106.0, receipt["totalPrice"])
	id := int64(receipt["orderId"].(float64))
	assert.Equal(t, 8, s.store.InventoryCount("G27", "北京南", "济南西", models.SeatSecondClass, testDate))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PENDING", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), 8, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "other users cannot see the order")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", id), 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decode(t, w)["status"])
	assert.Equal(t, 10, s.store.InventoryCount("G27", "济南西", "上海虹桥", models.SeatSecondClass, testDate))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/e-ticket", id), 7, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrders_ErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)

	body := s.orderBody()
	body["passengers"] = []gin.H{}
	w := s.do(t, http.MethodPost, "/api/orders", 7, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_passengers_selected", decode(t, w)["code"])

	body = s.orderBody()
	body["trainNo"] = "D1"
	w = s.do(t, http.MethodPost, "/api/orders", 7, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "train_not_found", decode(t, w)["code"])

	s.store.SetInventory("G27", "济南西", "上海虹桥", models.SeatSecondClass, testDate, 1)
	w = s.do(t, http.MethodPost, "/api/orders", 7, s.orderBody())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_seats", decode(t, w)["code"])

	s.store.FailOn("TrainExists", fmt.Errorf("connection refused"))
	w = s.do(t, http.MethodPost, "/api/orders", 7, s.orderBody())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOrders_RequireToken(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/orders", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrders_DevHeaderAuth(t *testing.T) {
	s := newTestServer(t, func(e *intconfig.Env) { e.AuthDevHeader = true })
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("X-User-ID", "7")
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrders_BlockUnpaid(t *testing.T) {
	s := newTestServer(t, func(e *intconfig.Env) { e.BookingBlockUnpaid = true })
	body := s.orderBody()
	body["passengers"] = []gin.H{{"passengerId": s.p1.ID, "seatClass": "second_class"}}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/orders", 7, body).Code)

	body["passengers"] = []gin.H{{"passengerId": s.p2.ID, "seatClass": "second_class"}}
	w := s.do(t, http.MethodPost, "/api/orders", 7, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "unpaid_order", decode(t, w)["code"])
}

func TestOrders_RateLimited(t *testing.T) {
	s := newTestServer(t, func(e *intconfig.Env) { e.BookingRateLimit = 1 })
	body := s.orderBody()
	body["passengers"] = []gin.H{}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/orders", 7, body).Code)
	w := s.do(t, http.MethodPost, "/api/orders", 7, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func quotePath(from, to, date string) string {
	q := url.Values{}
	q.Set("from", from)
	if to != "" {
		q.Set("to", to)
	}
	if date != "" {
		q.Set("date", date)
	}
	return "/api/trains/G27/quote?" + q.Encode()
}

func TestQuote(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, quotePath("北京南", "上海虹桥", testDate), 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var q models.TripQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	require.Len(t, q.Classes, 1)
	assert.Equal(t, models.Yuan(553), q.Classes[0].Price)
	assert.Equal(t, 10, q.Classes[0].Available)
	assert.Len(t, q.Legs, 2)

	w = s.do(t, http.MethodGet, quotePath("上海虹桥", "北京南", testDate), 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_direction", decode(t, w)["code"])

	w = s.do(t, http.MethodGet, quotePath("北京南", "", ""), 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPassengers_VersionedUpdate(t *testing.T) {
	s := newTestServer(t, nil)
	path := fmt.Sprintf("/api/passengers/%d", s.p1.ID)

	w := s.do(t, http.MethodPut, path, 7, gin.H{"version": 1, "name": "张三丰"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"success": true, "version": float64(2)}, decode(t, w))

	w = s.do(t, http.MethodPut, path, 7, gin.H{"version": 1, "name": "王五"})
	require.Equal(t, http.StatusConflict, w.Code)
	got := decode(t, w)
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "version_conflict", got["code"])

	w = s.do(t, http.MethodGet, path, 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "张三丰", decode(t, w)["name"])

	w = s.do(t, http.MethodPut, path, 8, gin.H{"version": 2, "name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, path, 7, gin.H{"version": 2, "phone": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPassengers_ListAndDelete(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodDelete, fmt.Sprintf("/api/passengers/%d?version=2", s.p2.ID), 7, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/passengers/%d", s.p2.ID), 7, gin.H{"version": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/passengers", 7, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["passengers"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, float64(s.p1.ID), list[0].(map[string]any)["id"])
}

func TestSystemRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/api/db-check", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "memory", decode(t, w)["storage"])

	w = s.do(t, http.MethodGet, "/api/nope", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminExpireOrders(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/admin/expire-orders", 7, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/expire-orders?batch=10", nil)
	req.Header.Set("Authorization", "Bearer "+tokenWithRole(t, 1, "admin"))
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(0), decode(t, rec)["released"])
}

func TestSearchTrains(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddTrain("G28", "上海虹桥", "济南西", "北京南")
	s.store.AddTrain("K9", "北京南", "天津")

	q := url.Values{}
	q.Set("from", "北京南")
	q.Set("to", "上海虹桥")
	q.Set("date", testDate)
	w := s.do(t, http.MethodGet, "/api/trains?"+q.Encode(), 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Trains []models.TripQuote `json:"trains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Trains, 1)
	assert.Equal(t, "G27", body.Trains[0].TrainNo)
	require.Len(t, body.Trains[0].Classes, 1)
	assert.Equal(t, models.Yuan(553), body.Trains[0].Classes[0].Price)

	q.Set("type", "D")
	w = s.do(t, http.MethodGet, "/api/trains?"+q.Encode(), 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Trains)

	w = s.do(t, http.MethodGet, "/api/trains?from=x", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
