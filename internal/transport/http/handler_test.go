package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/logger"
	"github.com/hrdesk/notify-service/internal/model"
	"github.com/hrdesk/notify-service/internal/repo"
	"github.com/hrdesk/notify-service/internal/service"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type nopBroker struct{}

func (nopBroker) Publish(context.Context, []byte, string) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *service.NotifyService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Employee{}, &model.OutboxRecord{}))

	log, _ := logger.NewLogger()
	repository := repo.NewRepository(db, log)
	svc := service.NewNotifyService(repository, nopBroker{}, config.NotifyConfig{
		AckTimeout: time.Minute, MaxAttempts: 3, SweepInterval: 10 * time.Second, SweepBatch: 100,
	}, config.RabbitConfig{Exchange: "x", RoutingKey: "k"}, log)

	r := gin.New()
	RegisterHandlers(r, svc)
	return r, svc
}

func validCreateBody() []byte {
	b, _ := json.Marshal(map[string]string{
		"name":           "Ada Lovelace",
		"email":          "ada@hrdesk.local",
		"position":       "Engineer",
		"job_level":      "Senior",
		"department":     "R&D",
		"begin_contract": "2026-01-01",
		"end_contract":   "2028-07-01",
	})
	return b
}

func doJSON(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateEmployee_Created(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/employees", validCreateBody())
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		MsgID    string         `json:"msg_id"`
		Employee model.Employee `json:"employee"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.MsgID)
	assert.NotZero(t, resp.Employee.ID)
}

func TestCreateEmployee_Validation(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := map[string]map[string]string{
		"missing name": {
			"email": "ada@hrdesk.local", "position": "Engineer", "job_level": "Senior",
			"department": "R&D", "begin_contract": "2026-01-01", "end_contract": "2028-07-01",
		},
		"bad email": {
			"name": "Ada", "email": "nope", "position": "Engineer", "job_level": "Senior",
			"department": "R&D", "begin_contract": "2026-01-01", "end_contract": "2028-07-01",
		},
		"end before begin": {
			"name": "Ada", "email": "ada@hrdesk.local", "position": "Engineer", "job_level": "Senior",
			"department": "R&D", "begin_contract": "2028-01-01", "end_contract": "2026-07-01",
		},
	}
	for name, body := range cases {
		b, _ := json.Marshal(body)
		w := doJSON(r, http.MethodPost, "/v1/employees", b)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestGetEmployee_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/v1/employees/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRepublish_ReturnsFreshMsgID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/employees", validCreateBody())
	assert.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		MsgID    string         `json:"msg_id"`
		Employee model.Employee `json:"employee"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/v1/employees/%d/notify", created.Employee.ID), nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	var rep struct {
		MsgID string `json:"msg_id"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.NotEmpty(t, rep.MsgID)
	assert.NotEqual(t, created.MsgID, rep.MsgID)
}

func TestNotificationStats(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/employees", validCreateBody())
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/v1/notifications/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var counts repo.StatusCounts
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts.Pending)
	assert.Equal(t, int64(0), counts.Confirmed)
	assert.Equal(t, int64(0), counts.Failed)
}
