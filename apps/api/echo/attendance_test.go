package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahadhurio/core"
	"github.com/trezcool/mahadhurio/core/attendance"
	"github.com/trezcool/mahadhurio/core/audit"
	"github.com/trezcool/mahadhurio/core/geofence"
	"github.com/trezcool/mahadhurio/core/permission"
	"github.com/trezcool/mahadhurio/core/schedule"
	"github.com/trezcool/mahadhurio/core/virtual"
	inmemdb "github.com/trezcool/mahadhurio/storage/database/inmem"
)

var testConf = &core.Config{
	AppName:   "Mahadhurio",
	Env:       "TEST",
	TestMode:  true,
	SecretKey: "secret",
	Server: core.ServerConfig{
		APIAddr:            ":0",
		JWTExpirationDelta: 10 * time.Minute,
	},
	Campus: core.CampusConfig{
		Latitude:     5.6037,
		Longitude:    -0.1870,
		RadiusMeters: 300,
	},
	Virtual: core.VirtualConfig{
		GraceBefore: 15 * time.Minute,
		GraceAfter:  15 * time.Minute,
		MinOverlap:  0.7,
	},
}

type testApp struct {
	server    *Server
	db        *inmemdb.DB
	schedRepo schedule.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	svc := attendance.NewService(
		inmemdb.NewAttendanceRepository(db),
		inmemdb.NewScheduleRepository(db),
		geofence.NewVerifier(testConf),
		virtual.NewVerifier(testConf),
		audit.NewService(inmemdb.NewAuditRepository(db)),
		nil,
		inmemdb.NewStaffDirectory(db),
	)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:          testConf,
		Logger:        testLogger{},
		AttendanceSvc: svc,
		Validate:      validate,
		Translator:    translator,
	})
	return &testApp{server: server, db: db, schedRepo: inmemdb.NewScheduleRepository(db)}
}

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

var (
	lecturer   = attendance.Actor{ID: "lec-1", Role: permission.RoleLecturer, Name: "Dr. Mensah", Email: "mensah@uni.edu"}
	classRep   = attendance.Actor{ID: "rep-1", Role: permission.RoleClassRep, ClassGroupID: "grp-1"}
	otherRep   = attendance.Actor{ID: "rep-9", Role: permission.RoleClassRep, ClassGroupID: "grp-9"}
	supervisor = attendance.Actor{ID: "sup-1", Role: permission.RoleSupervisor}
)

func getToken(t *testing.T, actor attendance.Actor) string {
	t.Helper()
	token, err := GenerateToken(testConf, GetActorClaims(testConf, actor))
	require.NoError(t, err)
	return token
}

// createSchedule seeds an onsite session owned by lecturer for grp-1 on
// today's weekday so a capture is valid whenever the test runs.
func (app *testApp) createSchedule(t *testing.T) schedule.ScheduledSession {
	t.Helper()
	now := time.Now().UTC()
	sched, err := app.schedRepo.CreateSchedule(context.Background(), schedule.ScheduledSession{
		ID:           uuid.NewString(),
		CourseCode:   "CS101",
		Title:        "Intro to Computer Science",
		LecturerID:   lecturer.ID,
		ClassGroupID: "grp-1",
		Day:          now.Weekday(),
		StartTime:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
		Mode:         schedule.ModeOnsite,
		Location:     "Block A, Room 12",
		CreatedAt:    now,
	})
	require.NoError(t, err)
	return sched
}

func (app *testApp) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) capture(t *testing.T, sched schedule.ScheduledSession) attendance.Record {
	t.Helper()
	rec := app.request(http.MethodPost, "/v1/attendance", getToken(t, lecturer), map[string]interface{}{
		"schedule_id": sched.ID,
		"method":      "onsite",
		"coordinates": map[string]float64{"latitude": 5.6037, "longitude": -0.1870},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out attendance.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAttendanceAPI_capture(t *testing.T) {
	app := setup(t)
	sched := app.createSchedule(t)

	onCampus := map[string]interface{}{
		"schedule_id": sched.ID,
		"method":      "onsite",
		"coordinates": map[string]float64{"latitude": 5.6037, "longitude": -0.1870},
	}

	tests := []struct {
		name     string
		token    string
		body     interface{}
		wantCode int
	}{
		{
			name:     "missing token is unauthorized",
			body:     onCampus,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "missing schedule id is a validation error",
			token:    getToken(t, lecturer),
			body:     map[string]interface{}{"method": "onsite"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:  "unknown schedule is not found",
			token: getToken(t, lecturer),
			body: map[string]interface{}{
				"schedule_id": "nope",
				"method":      "onsite",
				"coordinates": map[string]float64{"latitude": 5.6037, "longitude": -0.1870},
			},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "supervisor may not capture",
			token:    getToken(t, supervisor),
			body:     onCampus,
			wantCode: http.StatusForbidden,
		},
		{
			name:  "off campus capture fails verification",
			token: getToken(t, lecturer),
			body: map[string]interface{}{
				"schedule_id": sched.ID,
				"method":      "onsite",
				"coordinates": map[string]float64{"latitude": 5.65, "longitude": -0.1870},
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:  "virtual capture of an onsite session is rejected",
			token: getToken(t, lecturer),
			body: map[string]interface{}{
				"schedule_id":    sched.ID,
				"method":         "virtual",
				"virtual_action": "start",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "on campus capture succeeds",
			token:    getToken(t, lecturer),
			body:     onCampus,
			wantCode: http.StatusCreated,
		},
		{
			name:     "second capture same day conflicts",
			token:    getToken(t, lecturer),
			body:     onCampus,
			wantCode: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(http.MethodPost, "/v1/attendance", tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestAttendanceAPI_verification(t *testing.T) {
	app := setup(t)
	sched := app.createSchedule(t)
	record := app.capture(t, sched)

	path := fmt.Sprintf("/v1/attendance/%s/class-rep-verification", record.ID)
	verify := map[string]interface{}{"decision": "verified"}

	t.Run("rep of another class group is denied", func(t *testing.T) {
		rec := app.request(http.MethodPost, path, getToken(t, otherRep), verify)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("class rep verifies own class group", func(t *testing.T) {
		rec := app.request(http.MethodPost, path, getToken(t, classRep), verify)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out attendance.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, attendance.StatusVerified, out.ClassRep.Status)
		assert.Equal(t, classRep.ID, out.ClassRep.DecidedBy)
	})

	t.Run("verification is one shot", func(t *testing.T) {
		rec := app.request(http.MethodPost, path, getToken(t, classRep), verify)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("supervisor channel is independent", func(t *testing.T) {
		supPath := fmt.Sprintf("/v1/attendance/%s/supervisor-verification", record.ID)
		rec := app.request(http.MethodPost, supPath, getToken(t, supervisor), map[string]interface{}{
			"decision": "disputed",
			"comment":  "not seen in the lecture hall",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out attendance.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, attendance.StatusDisputed, out.Supervisor.Status)
		assert.Equal(t, attendance.StatusVerified, out.ClassRep.Status)
	})
}

func TestAttendanceAPI_escalations(t *testing.T) {
	app := setup(t)
	app.db.AddLecturerAddress(lecturer.ID, mail.Address{Name: lecturer.Name, Address: lecturer.Email})
	sched := app.createSchedule(t)
	record := app.capture(t, sched)

	openPath := fmt.Sprintf("/v1/attendance/%s/escalations", record.ID)
	evidence := map[string]interface{}{"evidence": "lecturer was present, slides timestamped"}

	var request attendance.Request

	t.Run("supervisor opens an escalation", func(t *testing.T) {
		rec := app.request(http.MethodPost, openPath, getToken(t, supervisor), evidence)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &request))
		assert.Equal(t, attendance.RequestPending, request.Status)
	})

	t.Run("one open request per record", func(t *testing.T) {
		rec := app.request(http.MethodPost, openPath, getToken(t, supervisor), evidence)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	resolvePath := "/v1/attendance/escalations/" + request.ID

	t.Run("requester may not resolve", func(t *testing.T) {
		rec := app.request(http.MethodPut, resolvePath, getToken(t, supervisor), map[string]interface{}{"decision": "approve"})
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("owning lecturer approves", func(t *testing.T) {
		rec := app.request(http.MethodPut, resolvePath, getToken(t, lecturer), map[string]interface{}{
			"decision": "approve",
			"notes":    "confirmed by slides",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out attendance.Request
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, attendance.RequestApproved, out.Status)
		assert.Equal(t, lecturer.ID, out.ReviewedBy)
	})

	t.Run("resolved request stays resolved", func(t *testing.T) {
		rec := app.request(http.MethodPut, resolvePath, getToken(t, lecturer), map[string]interface{}{"decision": "reject"})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})
}

func TestAttendanceAPI_retrieve(t *testing.T) {
	app := setup(t)
	sched := app.createSchedule(t)
	record := app.capture(t, sched)

	t.Run("owner reads own record", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/"+record.ID, getToken(t, lecturer), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out attendance.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, record.ID, out.ID)
	})

	t.Run("unknown record is not found", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/nope", getToken(t, lecturer), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}
