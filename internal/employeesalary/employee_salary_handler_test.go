package employeesalary_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-hris-ledger/internal/compensation"
	compensationerrors "go-hris-ledger/internal/compensation/errors"
	"go-hris-ledger/internal/employeesalary"
	"go-hris-ledger/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
	apperror.Init()
}

type fakeCompensationService struct {
	getHistoryFn    func(ctx context.Context, companyID, employeeID string, page, pageSize int) (employeesalary.CompensationResponse, error)
	replaceFn       func(ctx context.Context, companyID, employeeID string, req employeesalary.ReplaceCompensationRequest) (employeesalary.CompensationResponse, error)
	ensureProfileFn func(ctx context.Context, companyID, employeeID string, dateOfJoining *time.Time) error
}

func (f *fakeCompensationService) GetHistory(ctx context.Context, companyID, employeeID string, page, pageSize int) (employeesalary.CompensationResponse, error) {
	return f.getHistoryFn(ctx, companyID, employeeID, page, pageSize)
}

func (f *fakeCompensationService) ReplaceCompensation(ctx context.Context, companyID, employeeID string, req employeesalary.ReplaceCompensationRequest) (employeesalary.CompensationResponse, error) {
	return f.replaceFn(ctx, companyID, employeeID, req)
}

func (f *fakeCompensationService) EnsureProfile(ctx context.Context, companyID, employeeID string, dateOfJoining *time.Time) error {
	return f.ensureProfileFn(ctx, companyID, employeeID, dateOfJoining)
}

type envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newTestContext(method, target, body, companyID, employeeID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Params = gin.Params{{Key: "employee_id", Value: employeeID}}
	c.Set("company_id", companyID)
	return c, w
}

func TestEmployeeSalaryHandler_GetHistory(t *testing.T) {
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		svc := &fakeCompensationService{
			getHistoryFn: func(ctx context.Context, cid, eid string, page, pageSize int) (employeesalary.CompensationResponse, error) {
				assert.Equal(t, companyID, cid)
				assert.Equal(t, employeeID, eid)
				assert.Equal(t, 2, page)
				assert.Equal(t, 5, pageSize)
				return employeesalary.CompensationResponse{
					EmployeeID: eid,
					History: compensation.View{
						Rows:       make([]compensation.Row, 7),
						Page:       2,
						PageSize:   5,
						TotalPages: 2,
					},
				}, nil
			},
		}

		c, w := newTestContext(http.MethodGet, "/compensation?page=2&page_size=5", "", companyID, employeeID)
		employeesalary.NewHandler(svc).GetHistory(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Ok)
		assert.Equal(t, float64(7), env.Meta["total"])
		assert.Equal(t, float64(2), env.Meta["totalPages"])
		assert.Contains(t, string(env.Data), employeeID)
	})

	t.Run("invalid page size", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/compensation?page_size=1000", "", companyID, employeeID)
		employeesalary.NewHandler(&fakeCompensationService{}).GetHistory(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeInvalidInput, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeCompensationService{
			getHistoryFn: func(ctx context.Context, cid, eid string, page, pageSize int) (employeesalary.CompensationResponse, error) {
				return employeesalary.CompensationResponse{}, compensationerrors.ErrCompensationNotFound
			},
		}

		c, w := newTestContext(http.MethodGet, "/compensation", "", companyID, employeeID)
		employeesalary.NewHandler(svc).GetHistory(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEmployeeSalaryHandler_Replace(t *testing.T) {
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("numbers and strings are accepted", func(t *testing.T) {
		svc := &fakeCompensationService{
			replaceFn: func(ctx context.Context, cid, eid string, req employeesalary.ReplaceCompensationRequest) (employeesalary.CompensationResponse, error) {
				assert.Equal(t, employeesalary.ModeAddNew, req.Mode)
				assert.Equal(t, employeesalary.RawAmount("6200.50"), req.Basic)
				assert.Equal(t, employeesalary.RawAmount("600"), req.OtherAllowance)
				assert.Equal(t, "February", req.Month)
				return employeesalary.CompensationResponse{EmployeeID: eid}, nil
			},
		}

		body := `{"mode":"add_new","month":"February","basic":6200.50,"otherAllowance":"600"}`
		c, w := newTestContext(http.MethodPost, "/compensation", body, companyID, employeeID)
		employeesalary.NewHandler(svc).Replace(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("null allowance is empty", func(t *testing.T) {
		svc := &fakeCompensationService{
			replaceFn: func(ctx context.Context, cid, eid string, req employeesalary.ReplaceCompensationRequest) (employeesalary.CompensationResponse, error) {
				assert.Empty(t, req.OtherAllowance)
				return employeesalary.CompensationResponse{}, nil
			},
		}

		body := `{"mode":"edit_current","basic":"5000","otherAllowance":null}`
		c, w := newTestContext(http.MethodPost, "/compensation", body, companyID, employeeID)
		employeesalary.NewHandler(svc).Replace(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing mode", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/compensation", `{"basic":"1"}`, companyID, employeeID)
		employeesalary.NewHandler(&fakeCompensationService{}).Replace(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "mode", env.Error.Details["field"])
	})

	t.Run("unknown mode", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/compensation", `{"mode":"rewrite","basic":"1"}`, companyID, employeeID)
		employeesalary.NewHandler(&fakeCompensationService{}).Replace(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	nonNumeric := []struct {
		name  string
		body  string
		field string
	}{
		{"boolean basic", `{"mode":"add_new","basic":true}`, "basic"},
		{"object basic", `{"mode":"add_new","basic":{"value":1}}`, "basic"},
		{"array allowance", `{"mode":"add_new","basic":"1","otherAllowance":[1]}`, "otherAllowance"},
		{"text allowance", `{"mode":"add_new","basic":"1","otherAllowance":"1,000"}`, "otherAllowance"},
	}
	for _, tt := range nonNumeric {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, "/compensation", tt.body, companyID, employeeID)
			employeesalary.NewHandler(&fakeCompensationService{}).Replace(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, apperror.CodeInvalidInput, env.Error.Code)
			assert.Equal(t, tt.field, env.Error.Details["field"])
			assert.Equal(t, "must be numeric", env.Error.Details["reason"])
		})
	}

	t.Run("mistyped position", func(t *testing.T) {
		body := `{"mode":"delete_historical","position":"first"}`
		c, w := newTestContext(http.MethodPost, "/compensation", body, companyID, employeeID)
		employeesalary.NewHandler(&fakeCompensationService{}).Replace(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "position", env.Error.Details["field"])
	})

	t.Run("field validation from service", func(t *testing.T) {
		svc := &fakeCompensationService{
			replaceFn: func(ctx context.Context, cid, eid string, req employeesalary.ReplaceCompensationRequest) (employeesalary.CompensationResponse, error) {
				return employeesalary.CompensationResponse{}, compensationerrors.Validation("basic", "must be between 0 and 10000000")
			},
		}

		c, w := newTestContext(http.MethodPost, "/compensation", `{"mode":"add_new","basic":"-5"}`, companyID, employeeID)
		employeesalary.NewHandler(svc).Replace(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, apperror.CodeInvalidInput, env.Error.Code)
		assert.Equal(t, "basic", env.Error.Details["field"])
		assert.Equal(t, "must be between 0 and 10000000", env.Error.Details["reason"])
	})

	t.Run("persistence failure", func(t *testing.T) {
		svc := &fakeCompensationService{
			replaceFn: func(ctx context.Context, cid, eid string, req employeesalary.ReplaceCompensationRequest) (employeesalary.CompensationResponse, error) {
				return employeesalary.CompensationResponse{}, compensationerrors.PersistenceFailed(errors.New("disk full"))
			},
		}

		c, w := newTestContext(http.MethodPost, "/compensation", `{"mode":"edit_current","basic":"1"}`, companyID, employeeID)
		employeesalary.NewHandler(svc).Replace(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, apperror.CodePersistenceFailed, env.Error.Code)
		assert.Contains(t, env.Error.Message, "disk full")
	})
}
