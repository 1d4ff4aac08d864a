package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"safacycle/internal/analytics"
	"safacycle/internal/database"
	applog "safacycle/internal/logger"
	"safacycle/internal/model"
)

// fakeGateway implements the gateway interface in-memory. When down is set
// every method behaves like an unreachable document store.
type fakeGateway struct {
	mu    sync.Mutex
	down  bool
	saved map[string][]bson.M
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{saved: map[string][]bson.M{}}
}

func (g *fakeGateway) IsConnected(context.Context) bool { return !g.down }

func (g *fakeGateway) Save(_ context.Context, collection string, doc bson.M) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return ""
	}
	g.saved[collection] = append(g.saved[collection], doc)
	return "000000000000000000000001"
}

func (g *fakeGateway) UpsertByKey(_ context.Context, collection string, key string, value any, doc bson.M) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return ""
	}
	for i, d := range g.saved[collection] {
		if d[key] == value {
			doc[key] = value
			g.saved[collection][i] = doc
			return "000000000000000000000002"
		}
	}
	doc[key] = value
	g.saved[collection] = append(g.saved[collection], doc)
	return "000000000000000000000002"
}

func (g *fakeGateway) Get(_ context.Context, collection string, key string, value any) bson.M {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return nil
	}
	for _, d := range g.saved[collection] {
		if d[key] == value {
			return d
		}
	}
	return nil
}

func (g *fakeGateway) ListAll(_ context.Context, collection string, filter bson.M) []bson.M {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return nil
	}
	var docs []bson.M
	for _, d := range g.saved[collection] {
		match := true
		for k, v := range filter {
			if d[k] != v {
				match = false
				break
			}
		}
		if match {
			docs = append(docs, d)
		}
	}
	return docs
}

func (g *fakeGateway) Stats(context.Context) *analytics.DBStats {
	if g.down {
		return nil
	}
	return &analytics.DBStats{DatabaseName: "test"}
}

type fakeReplicator struct {
	mu     sync.Mutex
	full   bool
	events []analytics.ScanEvent
}

func (r *fakeReplicator) Enqueue(e analytics.ScanEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.events = append(r.events, e)
	return true
}

func newTestServer(t *testing.T) (Server, *fakeGateway, *fakeReplicator, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	g := newFakeGateway()
	r := &fakeReplicator{}
	s := Server{
		DB:         database.Database{DB: sqlx.NewDb(mockDB, "sqlmock")},
		Gateway:    g,
		Replicator: r,
		Logger:     applog.NewLogger(applog.LevelOff, io.Discard),
	}
	return s, g, r, mock
}

func authedRequest(method, target, body string, u model.User) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	uc := userContext{user: u, deviceID: "test-device"}
	return r.WithContext(setUserContext(r.Context(), uc))
}

func testUser() model.User {
	return model.User{
		ID:          7,
		Username:    "asha",
		Email:       "asha@example.com",
		TotalPoints: 120,
		Level:       "Intermediate",
		CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func categoryRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "category_type", "description", "points_per_item", "color_code", "created_at", "updated_at",
	}).AddRow(int64(2), "Plastic", "recyclable", "", 5, "#2196F3", now, now)
}

func TestScanCreate(t *testing.T) {
	s, _, r, mock := newTestServer(t)
	u := testUser()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM waste_categories WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(categoryRows())
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waste_scans`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(31), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SET total_points = total_points + $1`)).
		WithArgs(15, u.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "phone_number", "total_points", "level", "is_staff", "created_at", "updated_at",
		}).AddRow(u.ID, u.Username, u.Email, "", 135, "Intermediate", false, u.CreatedAt, now))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	s.scanCreate()(w, authedRequest(http.MethodPost, "/api/waste/scans",
		`{"category_id": 2, "quantity": 3}`, u))

	require.Equal(t, http.StatusCreated, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"total_points":135`)
	assert.Contains(t, body, `"points_awarded":15`)
	assert.Contains(t, body, `"bonus_points":0`)
	assert.Contains(t, body, `"level_up":false`)
	assert.Contains(t, body, `"replication_queued":true`)

	require.Len(t, r.events, 1)
	assert.Equal(t, int64(31), r.events[0].Scan.ID)
	assert.Equal(t, "Plastic", r.events[0].Category.Name)
	assert.Equal(t, 135, r.events[0].User.TotalPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCreateBonusPoints(t *testing.T) {
	s, _, _, mock := newTestServer(t)
	u := testUser()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM waste_categories WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(categoryRows())
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waste_scans`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(32), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SET total_points = total_points + $1`)).
		WithArgs(22, u.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "phone_number", "total_points", "level", "is_staff", "created_at", "updated_at",
		}).AddRow(u.ID, u.Username, u.Email, "", 142, "Intermediate", false, u.CreatedAt, now))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	s.scanCreate()(w, authedRequest(http.MethodPost, "/api/waste/scans",
		`{"category_id": 2, "quantity": 4, "ml_prediction": "plastic_bottle", "ml_confidence": 0.95}`, u))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"points_awarded":20`)
	assert.Contains(t, w.Body.String(), `"bonus_points":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCreateUnknownCategory(t *testing.T) {
	s, _, r, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM waste_categories WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	s.scanCreate()(w, authedRequest(http.MethodPost, "/api/waste/scans",
		`{"category_id": 99, "quantity": 1}`, testUser()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown category")
	assert.Empty(t, r.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCreateInvalidQuantity(t *testing.T) {
	s, _, r, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM waste_categories WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(categoryRows())

	w := httptest.NewRecorder()
	s.scanCreate()(w, authedRequest(http.MethodPost, "/api/waste/scans",
		`{"category_id": 2, "quantity": 0}`, testUser()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, r.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanCreateReplicationQueueFull(t *testing.T) {
	s, _, r, mock := newTestServer(t)
	r.full = true
	u := testUser()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM waste_categories WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(categoryRows())
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waste_scans`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(33), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SET total_points = total_points + $1`)).
		WithArgs(5, u.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "phone_number", "total_points", "level", "is_staff", "created_at", "updated_at",
		}).AddRow(u.ID, u.Username, u.Email, "", 125, "Intermediate", false, u.CreatedAt, now))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	s.scanCreate()(w, authedRequest(http.MethodPost, "/api/waste/scans",
		`{"category_id": 2, "quantity": 1}`, u))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"replication_queued":false`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsStatus(t *testing.T) {
	s, g, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.analyticsStatus()(w, authedRequest(http.MethodGet, "/api/analytics/status", "", testUser()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"connected"`)

	g.down = true
	w = httptest.NewRecorder()
	s.analyticsStatus()(w, authedRequest(http.MethodGet, "/api/analytics/status", "", testUser()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"disconnected"`)
}

func TestAnalyticsUserSyncAndGet(t *testing.T) {
	s, g, _, _ := newTestServer(t)
	u := testUser()

	w := httptest.NewRecorder()
	s.analyticsUser()(w, authedRequest(http.MethodGet, "/api/analytics/user", "", u))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	s.analyticsUserSync()(w, authedRequest(http.MethodPost, "/api/analytics/user-sync", "", u))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	require.Len(t, g.saved[analytics.CollectionUsers], 1)
	assert.Equal(t, "7", g.saved[analytics.CollectionUsers][0]["user_id"])

	w = httptest.NewRecorder()
	s.analyticsUser()(w, authedRequest(http.MethodGet, "/api/analytics/user", "", u))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"asha"`)
}

func TestAnalyticsUserSyncGatewayDown(t *testing.T) {
	s, g, _, _ := newTestServer(t)
	g.down = true

	w := httptest.NewRecorder()
	s.analyticsUserSync()(w, authedRequest(http.MethodPost, "/api/analytics/user-sync", "", testUser()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNotificationMarkRead(t *testing.T) {
	s, _, _, mock := newTestServer(t)
	u := testUser()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET is_read = TRUE`)).
		WithArgs(int64(12), u.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r := authedRequest(http.MethodPost, "/api/notifications/12/read", "", u)
	r = mux.SetURLVars(r, map[string]string{"notificationID": "12"})
	s.notificationMarkRead()(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadNotFound(t *testing.T) {
	s, _, _, mock := newTestServer(t)
	u := testUser()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET is_read = TRUE`)).
		WithArgs(int64(99), u.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	r := authedRequest(http.MethodPost, "/api/notifications/99/read", "", u)
	r = mux.SetURLVars(r, map[string]string{"notificationID": "99"})
	s.notificationMarkRead()(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadInvalidID(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r := authedRequest(http.MethodPost, "/api/notifications/abc/read", "", testUser())
	r = mux.SetURLVars(r, map[string]string{"notificationID": "abc"})
	s.notificationMarkRead()(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffOnly(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	s.staffOnly(next).ServeHTTP(w, authedRequest(http.MethodGet, "/api/admin/actions", "", testUser()))
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := testUser()
	staff.IsStaff = true
	w = httptest.NewRecorder()
	s.staffOnly(next).ServeHTTP(w, authedRequest(http.MethodGet, "/api/admin/actions", "", staff))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDriverSaveAndList(t *testing.T) {
	s, g, _, _ := newTestServer(t)
	staff := testUser()
	staff.IsStaff = true

	w := httptest.NewRecorder()
	s.driverSave()(w, authedRequest(http.MethodPost, "/api/drivers",
		`{"driver_id": "DRV001", "full_name": "Ravi Kumar", "vehicle_number": "KA-01-1234"}`, staff))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"driver_id":"DRV001"`)
	require.Len(t, g.saved[analytics.CollectionDrivers], 1)
	assert.Equal(t, "garbage_truck", g.saved[analytics.CollectionDrivers][0]["vehicle_type"])
	assert.Equal(t, "active", g.saved[analytics.CollectionDrivers][0]["status"])

	w = httptest.NewRecorder()
	s.driverList()(w, authedRequest(http.MethodGet, "/api/drivers?driver_id=DRV001", "", staff))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"full_name":"Ravi Kumar"`)

	w = httptest.NewRecorder()
	s.driverList()(w, authedRequest(http.MethodGet, "/api/drivers?driver_id=DRV404", "", staff))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDriverSaveMissingID(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.driverSave()(w, authedRequest(http.MethodPost, "/api/drivers", `{"full_name": "No ID"}`, testUser()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminActionSaveAndList(t *testing.T) {
	s, g, _, _ := newTestServer(t)
	staff := testUser()
	staff.IsStaff = true

	w := httptest.NewRecorder()
	s.adminActionSave()(w, authedRequest(http.MethodPost, "/api/admin/actions",
		`{"action_type": "user_review", "description": "reviewed flagged scans", "target_user_id": "42"}`, staff))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, g.saved[analytics.CollectionAdmin], 1)
	assert.Equal(t, "user_review", g.saved[analytics.CollectionAdmin][0]["action_type"])
	assert.Equal(t, "7", g.saved[analytics.CollectionAdmin][0]["admin_id"])

	w = httptest.NewRecorder()
	s.adminActionList()(w, authedRequest(http.MethodGet, "/api/admin/actions?admin_id=7", "", staff))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"actions_count":1`)

	w = httptest.NewRecorder()
	s.adminActionList()(w, authedRequest(http.MethodGet, "/api/admin/actions?admin_id=999", "", staff))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"actions_count":0`)
}
