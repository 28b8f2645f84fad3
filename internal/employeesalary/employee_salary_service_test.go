package employeesalary_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-hris-ledger/internal/compensation"
	compensationerrors "go-hris-ledger/internal/compensation/errors"
	"go-hris-ledger/internal/employeesalary"
	employeesalaryMock "go-hris-ledger/internal/employeesalary/mock"
	"go-hris-ledger/internal/events"
	"go-hris-ledger/internal/messaging/kafka"
	kafkaMock "go-hris-ledger/internal/messaging/kafka/mock"
	"go-hris-ledger/internal/shared/apperror"
	"go-hris-ledger/internal/shared/contextutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, time.January, 10, 9, 30, 0, 0, time.UTC)

type serviceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   employeesalary.Service
	repo      *employeesalaryMock.MockRepository
	outbox    *kafkaMock.MockOutboxRepository
	redismock redismock.ClientMock
}

func setupServiceTest(t *testing.T) *serviceDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	dbRedis, redisMock := redismock.NewClientMock()
	repo := employeesalaryMock.NewMockRepository(ctrl)
	outboxRepo := kafkaMock.NewMockOutboxRepository(ctrl)

	n := 0
	clock := func() time.Time { return fixedNow }
	classifier := compensation.NewClassifier(
		compensation.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("rev-%d", n)
		}),
		compensation.WithClock(clock),
	)

	svc := employeesalary.NewServiceWithOutbox(db, repo, outboxRepo, dbRedis, employeesalary.Config{
		PageSize:   10,
		Clock:      clock,
		Classifier: classifier,
	})

	return &serviceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		outbox:    outboxRepo,
		redismock: redisMock,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func legacyProfile(companyID string) *employeesalary.EmployeeCompensation {
	joined := day("2023-03-15")
	return &employeesalary.EmployeeCompensation{
		ID:                 uuid.New(),
		CompanyID:          uuid.MustParse(companyID),
		EmployeeID:         uuid.New(),
		Basic:              dec("5000"),
		OtherAllowance:     dec("500"),
		HouseRentAllowance: dec("1000"),
		DateOfJoining:      &joined,
		CreatedAt:          day("2023-04-01"),
	}
}

// versionedProfile has one closed and one open entry.
func versionedProfile(companyID string) *employeesalary.EmployeeCompensation {
	comp := legacyProfile(companyID)
	closedAt := day("2024-06-01")
	comp.Basic, comp.OtherAllowance = dec("6000"), dec("500")
	comp.CurrentRevisionID = "open-1"
	comp.SalaryHistory = []compensation.LedgerEntry{
		{
			ID: "closed-1", Month: "March", FromDate: day("2023-03-01"), ToDate: &closedAt,
			Basic: dec("5000"), OtherAllowance: dec("500"), TotalSalary: dec("5500"), IsInitial: true,
		},
		{
			ID: "open-1", Month: "June", FromDate: day("2024-06-01"),
			Basic: dec("6000"), OtherAllowance: dec("500"), TotalSalary: dec("6500"),
		},
	}
	return comp
}

func expectReplaceFlow(deps *serviceDeps, comp *employeesalary.EmployeeCompensation, check func(*employeesalary.EmployeeCompensation)) {
	deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
	deps.repo.EXPECT().
		FindByEmployee(gomock.Any(), comp.CompanyID.String(), comp.EmployeeID.String()).
		Return(comp, nil)
	deps.repo.EXPECT().
		ReplaceHistory(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, c *employeesalary.EmployeeCompensation) error {
			check(c)
			return nil
		})
	deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
	deps.outbox.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	deps.redismock.ExpectDel(employeesalary.GetCompensationHistoryKey(comp.CompanyID.String(), comp.EmployeeID.String())).SetVal(1)
}

func TestEmployeeSalaryService_GetHistory(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()

	t.Run("legacy employee shows a materialized entry", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := legacyProfile(companyID)
		key := employeesalary.GetCompensationHistoryKey(companyID, comp.EmployeeID.String())
		data, _ := json.Marshal(comp)

		deps.redismock.ExpectGet(key).RedisNil()
		deps.repo.EXPECT().
			FindByEmployee(ctx, companyID, comp.EmployeeID.String()).
			Return(comp, nil)
		deps.redismock.ExpectSet(key, data, employeesalary.DefaultCacheTTL).SetVal("OK")

		resp, err := deps.service.GetHistory(ctx, companyID, comp.EmployeeID.String(), 1, 0)

		assert.NoError(t, err)
		assert.True(t, resp.TotalSalary.Equal(dec("6500")))
		assert.Len(t, resp.History.Rows, 1)
		row := resp.History.Rows[0]
		assert.Empty(t, row.ID)
		assert.Equal(t, day("2023-03-01"), row.FromDate)
		assert.Nil(t, row.ToDate)
		assert.True(t, row.IsInitial)
		assert.True(t, row.TotalSalary.Equal(dec("5500")))
		assert.Equal(t, 1, resp.History.TotalPages)
		assert.Empty(t, comp.SalaryHistory)
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)
		key := employeesalary.GetCompensationHistoryKey(companyID, comp.EmployeeID.String())
		data, _ := json.Marshal(comp)

		deps.redismock.ExpectGet(key).SetVal(string(data))

		resp, err := deps.service.GetHistory(ctx, companyID, comp.EmployeeID.String(), 1, 1)

		assert.NoError(t, err)
		assert.Len(t, resp.History.Rows, 2)
		assert.Equal(t, 2, resp.History.TotalPages)
		assert.Len(t, resp.History.CurrentPageRows, 1)
		assert.Equal(t, "open-1", resp.History.CurrentPageRows[0].ID)
		assert.Equal(t, "open-1", resp.CurrentRevisionID)
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		employeeID := uuid.New().String()

		deps.redismock.ExpectGet(employeesalary.GetCompensationHistoryKey(companyID, employeeID)).RedisNil()
		deps.repo.EXPECT().
			FindByEmployee(ctx, companyID, employeeID).
			Return(nil, gorm.ErrRecordNotFound)

		_, err := deps.service.GetHistory(ctx, companyID, employeeID, 1, 10)

		assert.ErrorIs(t, err, compensationerrors.ErrCompensationNotFound)
	})

	t.Run("invalid employee id", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.GetHistory(ctx, companyID, "not-a-uuid", 1, 10)

		assert.ErrorIs(t, err, compensationerrors.ErrInvalidEmployeeID)
	})
}

func TestEmployeeSalaryService_ReplaceCompensation(t *testing.T) {
	companyID := uuid.New().String()

	t.Run("edit current on legacy employee populates then corrects", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		ctx := contextutil.WithRequestID(context.Background(), "req-1")
		comp := legacyProfile(companyID)

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().
			FindByEmployee(ctx, companyID, comp.EmployeeID.String()).
			Return(comp, nil)
		deps.repo.EXPECT().
			ReplaceHistory(ctx, gomock.Any()).
			DoAndReturn(func(ctx context.Context, c *employeesalary.EmployeeCompensation) error {
				assert.Len(t, c.SalaryHistory, 2)
				assert.Equal(t, day("2025-01-10"), *c.SalaryHistory[0].ToDate)
				assert.True(t, c.SalaryHistory[0].TotalSalary.Equal(dec("5500")))
				assert.True(t, c.SalaryHistory[1].IsInitial)
				assert.True(t, c.Basic.Equal(dec("6000")))
				assert.Equal(t, "rev-2", c.CurrentRevisionID)
				return nil
			})
		deps.outbox.EXPECT().WithTx(gomock.Any()).Return(deps.outbox)
		deps.outbox.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(ctx context.Context, e kafka.OutboxEvent) error {
				assert.NoError(t, kafka.ValidateOutboxEvent(e))
				assert.Equal(t, "req-1", e.RequestID)
				assert.Equal(t, events.SalaryHistoryReplacedTopic, e.Topic)
				assert.Equal(t, comp.EmployeeID.String(), e.AggregateID)

				var event events.SalaryHistoryReplacedEvent
				assert.NoError(t, json.Unmarshal(e.Payload, &event))
				assert.Equal(t, []string{"populate_from_legacy", "correct_open_revision"}, event.Operations)
				assert.Equal(t, "6000", event.Basic)
				assert.Equal(t, 2, event.EntryCount)
				return nil
			})
		deps.redismock.ExpectDel(employeesalary.GetCompensationHistoryKey(companyID, comp.EmployeeID.String())).SetVal(1)

		resp, err := deps.service.ReplaceCompensation(ctx, companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:           employeesalary.ModeEditCurrent,
			Basic:          "6000",
			OtherAllowance: "500",
		})

		assert.NoError(t, err)
		assert.Len(t, resp.History.Rows, 2)
		assert.Equal(t, "rev-2", resp.History.Rows[0].ID)
		assert.True(t, resp.TotalSalary.Equal(dec("7500")))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("add new closes the open entry at the effective date", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)

		expectTx(t, deps.sqlMock, true)
		expectReplaceFlow(deps, comp, func(c *employeesalary.EmployeeCompensation) {
			assert.Len(t, c.SalaryHistory, 3)
			assert.Equal(t, day("2025-02-01"), *c.SalaryHistory[1].ToDate)
			added := c.SalaryHistory[2]
			assert.Nil(t, added.ToDate)
			assert.False(t, added.IsInitial)
			assert.Equal(t, "February", added.Month)
			assert.True(t, added.TotalSalary.Equal(dec("6800")))
			assert.True(t, c.OtherAllowance.Equal(dec("600")))
		})

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:           employeesalary.ModeAddNew,
			EffectiveDate:  "2025-02-01",
			Month:          "february",
			Basic:          "6200",
			OtherAllowance: "600",
		})

		assert.NoError(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("edit historical keeps dates", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)
		position := 1

		expectTx(t, deps.sqlMock, true)
		expectReplaceFlow(deps, comp, func(c *employeesalary.EmployeeCompensation) {
			edited := c.SalaryHistory[0]
			assert.Equal(t, day("2023-03-01"), edited.FromDate)
			assert.Equal(t, day("2024-06-01"), *edited.ToDate)
			assert.True(t, edited.TotalSalary.Equal(dec("5600")))
			assert.True(t, c.Basic.Equal(dec("6000")))
		})

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:           employeesalary.ModeEditHistorical,
			Position:       &position,
			Basic:          "5100",
			OtherAllowance: "500",
		})

		assert.NoError(t, err)
	})

	t.Run("delete open entry keeps top level values", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)
		position := 0

		expectTx(t, deps.sqlMock, true)
		expectReplaceFlow(deps, comp, func(c *employeesalary.EmployeeCompensation) {
			assert.Len(t, c.SalaryHistory, 1)
			assert.Equal(t, "closed-1", c.SalaryHistory[0].ID)
			assert.True(t, c.Basic.Equal(dec("6000")))
			assert.Empty(t, c.CurrentRevisionID)
		})

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:     employeesalary.ModeDeleteHistorical,
			Position: &position,
		})

		assert.NoError(t, err)
	})

	t.Run("validation error writes nothing", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().
			FindByEmployee(gomock.Any(), companyID, comp.EmployeeID.String()).
			Return(comp, nil)

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:  employeesalary.ModeEditCurrent,
			Basic: "abc",
		})

		var ve *compensationerrors.ValidationError
		assert.ErrorAs(t, err, &ve)
		assert.Equal(t, "basic", ve.Field)
		assert.Equal(t, 400, apperror.ToHTTP(err).Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("effective date before current start", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByEmployee(gomock.Any(), gomock.Any(), gomock.Any()).Return(comp, nil)

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:          employeesalary.ModeAddNew,
			EffectiveDate: "2024-01-01",
			Basic:         "7000",
		})

		var ve *compensationerrors.ValidationError
		assert.ErrorAs(t, err, &ve)
		assert.Equal(t, "fromDate", ve.Field)
	})

	t.Run("position out of range", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)
		position := 5

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByEmployee(gomock.Any(), gomock.Any(), gomock.Any()).Return(comp, nil)

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:     employeesalary.ModeDeleteHistorical,
			Position: &position,
		})

		assert.ErrorIs(t, err, compensationerrors.ErrEntryNotFound)
	})

	t.Run("persistence failure carries the reason", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		comp := versionedProfile(companyID)

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByEmployee(gomock.Any(), gomock.Any(), gomock.Any()).Return(comp, nil)
		deps.repo.EXPECT().
			ReplaceHistory(gomock.Any(), gomock.Any()).
			Return(errors.New("connection reset by peer"))

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, comp.EmployeeID.String(), employeesalary.ReplaceCompensationRequest{
			Mode:  employeesalary.ModeEditCurrent,
			Basic: "6100",
		})

		httpErr := apperror.ToHTTP(err)
		assert.Equal(t, 500, httpErr.Status)
		assert.Equal(t, apperror.CodePersistenceFailed, httpErr.Code)
		assert.Contains(t, httpErr.Message, "connection reset by peer")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		assert.NoError(t, deps.redismock.ExpectationsWereMet())
	})

	t.Run("profile not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()
		employeeID := uuid.New().String()

		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo)
		deps.repo.EXPECT().FindByEmployee(gomock.Any(), companyID, employeeID).Return(nil, gorm.ErrRecordNotFound)

		_, err := deps.service.ReplaceCompensation(context.Background(), companyID, employeeID, employeesalary.ReplaceCompensationRequest{
			Mode:  employeesalary.ModeAddNew,
			Basic: "1",
		})

		assert.ErrorIs(t, err, compensationerrors.ErrCompensationNotFound)
	})
}

func TestEmployeeSalaryService_EnsureProfile(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	employeeID := uuid.New().String()
	joined := day("2024-02-12")

	t.Run("creates an empty profile", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(ctx context.Context, c *employeesalary.EmployeeCompensation) error {
				assert.Equal(t, companyID, c.CompanyID.String())
				assert.Equal(t, employeeID, c.EmployeeID.String())
				assert.Equal(t, &joined, c.DateOfJoining)
				assert.NotNil(t, c.SalaryHistory)
				assert.Empty(t, c.SalaryHistory)
				return nil
			})

		assert.NoError(t, deps.service.EnsureProfile(ctx, companyID, employeeID, &joined))
	})

	t.Run("duplicate is not an error", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.repo.EXPECT().
			Create(ctx, gomock.Any()).
			Return(&pgconn.PgError{Code: "23505", ConstraintName: "uq_employee_compensation_employee"})

		assert.NoError(t, deps.service.EnsureProfile(ctx, companyID, employeeID, nil))
	})

	t.Run("other errors surface", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.repo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("db down"))

		err := deps.service.EnsureProfile(ctx, companyID, employeeID, nil)

		assert.Equal(t, apperror.CodePersistenceFailed, apperror.ToHTTP(err).Code)
	})

	t.Run("invalid ids", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		assert.Error(t, deps.service.EnsureProfile(ctx, "x", employeeID, nil))
		assert.ErrorIs(t, deps.service.EnsureProfile(ctx, companyID, "x", nil), compensationerrors.ErrInvalidEmployeeID)
	})
}
