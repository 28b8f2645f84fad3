package employeesalary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go-hris-ledger/internal/compensation"
	compensationerrors "go-hris-ledger/internal/compensation/errors"
	"go-hris-ledger/internal/events"
	"go-hris-ledger/internal/messaging/kafka"
	"go-hris-ledger/internal/shared/apperror"
	"go-hris-ledger/internal/shared/contextutil"
	"go-hris-ledger/internal/shared/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	CompensationHistoryKeyPrefix = "compensation:history:"

	DefaultPageSize = 10
	DefaultCacheTTL = 10 * time.Minute
)

func GetCompensationHistoryKey(companyID, employeeID string) string {
	return CompensationHistoryKeyPrefix + companyID + ":" + employeeID
}

type Config struct {
	PageSize   int
	CacheTTL   time.Duration
	Clock      func() time.Time
	Classifier *compensation.Classifier
}

//go:generate mockgen -source=employee_salary_service.go -destination=mock/employee_salary_service_mock.go -package=mock
type Service interface {
	GetHistory(ctx context.Context, companyID, employeeID string, page, pageSize int) (CompensationResponse, error)
	ReplaceCompensation(ctx context.Context, companyID, employeeID string, req ReplaceCompensationRequest) (CompensationResponse, error)
	EnsureProfile(ctx context.Context, companyID, employeeID string, dateOfJoining *time.Time) error
}

type service struct {
	db         *sql.DB
	repo       Repository
	outbox     kafka.OutboxRepository
	rdb        *redis.Client
	sf         *singleflight.Group
	classifier *compensation.Classifier
	now        func() time.Time
	pageSize   int
	cacheTTL   time.Duration
	logger     *zap.Logger
}

func NewService(db *sql.DB, repo Repository, rdb *redis.Client, cfg Config, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, nil, rdb, cfg, logger...)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	outboxRepo kafka.OutboxRepository,
	rdb *redis.Client,
	cfg Config,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("employeesalary.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employeesalary.service")
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Classifier == nil {
		cfg.Classifier = compensation.NewClassifier(compensation.WithClock(cfg.Clock))
	}

	return &service{
		db:         db,
		repo:       repo,
		outbox:     outboxRepo,
		rdb:        rdb,
		sf:         &singleflight.Group{},
		classifier: cfg.Classifier,
		now:        cfg.Clock,
		pageSize:   cfg.PageSize,
		cacheTTL:   cfg.CacheTTL,
		logger:     l,
	}
}

func (s *service) GetHistory(
	ctx context.Context,
	companyID, employeeID string,
	page, pageSize int,
) (CompensationResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("get salary history requested",
		zap.String("request_id", rid),
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
		zap.Int("page", page),
	)

	if _, err := uuid.Parse(employeeID); err != nil {
		return CompensationResponse{}, compensationerrors.ErrInvalidEmployeeID
	}

	comp, err := s.load(ctx, companyID, employeeID)
	if err != nil {
		s.logger.Warn("get salary history failed",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return CompensationResponse{}, err
	}

	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	snap := comp.Snapshot()
	ledger := snap.SalaryHistory
	if op, ok := s.classifier.MaterializeLegacy(snap, s.today()); ok {
		// Display only; the entry is persisted on the first edit.
		op.Entry.ID = ""
		ledger = []compensation.LedgerEntry{op.Entry}
	}

	return mapToResponse(comp, ledger, page, pageSize), nil
}

func (s *service) ReplaceCompensation(
	ctx context.Context,
	companyID, employeeID string,
	req ReplaceCompensationRequest,
) (CompensationResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("replace compensation requested",
		zap.String("request_id", rid),
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
		zap.String("mode", string(req.Mode)),
	)

	if _, err := uuid.Parse(employeeID); err != nil {
		return CompensationResponse{}, s.reject(compensationerrors.ErrInvalidEmployeeID)
	}

	effective, err := s.effectiveDate(req.EffectiveDate)
	if err != nil {
		return CompensationResponse{}, s.reject(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("replace compensation begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return CompensationResponse{}, s.reject(compensationerrors.PersistenceFailed(err))
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	comp, err := qtx.FindByEmployee(ctx, companyID, employeeID)
	if err != nil {
		s.logger.Warn("replace compensation load failed",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return CompensationResponse{}, s.reject(mapRepositoryError(err))
	}

	snap := comp.Snapshot()
	ledger, kinds, err := s.mutate(snap, req, effective)
	if err != nil {
		s.logger.Warn("replace compensation rejected",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.String("mode", string(req.Mode)),
			zap.Error(err),
		)
		return CompensationResponse{}, s.reject(err)
	}

	if err := compensation.ValidateLedger(ledger); err != nil {
		s.logger.Error("replace compensation produced an invalid ledger",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return CompensationResponse{}, s.reject(err)
	}

	comp.apply(compensation.NewPayload(snap, ledger))

	if err := qtx.ReplaceHistory(ctx, comp); err != nil {
		s.logger.Error("replace compensation persist failed",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return CompensationResponse{}, s.reject(mapWriteError(err))
	}

	if s.outbox != nil {
		if err := s.queueReplaced(ctx, tx, rid, comp, req.Mode, kinds); err != nil {
			s.logger.Error("replace compensation outbox persist failed",
				zap.String("request_id", rid),
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
			return CompensationResponse{}, s.reject(compensationerrors.PersistenceFailed(err))
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return CompensationResponse{}, s.reject(compensationerrors.PersistenceFailed(err))
	}

	s.invalidate(ctx, companyID, employeeID)

	for _, kind := range kinds {
		metrics.LedgerOperation(kind)
	}
	s.logger.Info("replace compensation success",
		zap.String("request_id", rid),
		zap.String("employee_id", employeeID),
		zap.Strings("operations", kinds),
		zap.String("current_revision_id", comp.CurrentRevisionID),
	)

	return mapToResponse(comp, comp.SalaryHistory, 1, s.pageSize), nil
}

func (s *service) EnsureProfile(
	ctx context.Context,
	companyID, employeeID string,
	dateOfJoining *time.Time,
) error {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return apperror.InvalidField("company_id")
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return compensationerrors.ErrInvalidEmployeeID
	}

	comp := &EmployeeCompensation{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EmployeeID:    employeeUUID,
		DateOfJoining: dateOfJoining,
		SalaryHistory: []compensation.LedgerEntry{},
	}

	if err := s.repo.Create(ctx, comp); err != nil {
		mapped := mapWriteError(err)
		if errors.Is(mapped, compensationerrors.ErrCompensationAlreadyExists) {
			s.logger.Info("compensation profile already exists, skipping",
				zap.String("company_id", companyID),
				zap.String("employee_id", employeeID),
			)
			return nil
		}
		s.logger.Error("create compensation profile failed",
			zap.String("company_id", companyID),
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return mapped
	}

	s.logger.Info("compensation profile created",
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
	)
	return nil
}

// mutate computes the next ledger for req. It returns the applied operation
// kinds in order.
func (s *service) mutate(
	snap compensation.Snapshot,
	req ReplaceCompensationRequest,
	effective time.Time,
) ([]compensation.LedgerEntry, []string, error) {
	switch req.Mode {
	case ModeEditCurrent, ModeAddNew:
		rev, err := compensation.ParseRevision(req.RevisionInput())
		if err != nil {
			return nil, nil, err
		}
		plan, err := s.classifier.Classify(snap, rev, compensation.Intent(req.Mode), effective)
		if err != nil {
			return nil, nil, err
		}
		ledger, err := compensation.ApplyPlan(snap.SalaryHistory, plan)
		if err != nil {
			return nil, nil, err
		}
		kinds := make([]string, len(plan))
		for i, op := range plan {
			kinds[i] = string(op.Kind)
		}
		return ledger, kinds, nil

	case ModeEditHistorical, ModeDeleteHistorical:
		if req.Position == nil {
			return nil, nil, compensationerrors.Validation("position", "is required")
		}

		// Positions refer to the displayed history, which includes the
		// legacy entry for an employee that was never edited.
		ledger := snap.SalaryHistory
		var kinds []string
		if op, ok := s.classifier.MaterializeLegacy(snap, s.today()); ok {
			populated, err := compensation.Apply(ledger, op)
			if err != nil {
				return nil, nil, err
			}
			ledger = populated
			kinds = append(kinds, string(op.Kind))
		}

		if req.Mode == ModeDeleteHistorical {
			next, err := compensation.Delete(ledger, *req.Position)
			if err != nil {
				return nil, nil, err
			}
			return next, append(kinds, string(req.Mode)), nil
		}

		rev, err := compensation.ParseRevision(req.RevisionInput())
		if err != nil {
			return nil, nil, err
		}
		next, err := compensation.EditHistorical(ledger, *req.Position, rev)
		if err != nil {
			return nil, nil, err
		}
		return next, append(kinds, string(req.Mode)), nil

	default:
		return nil, nil, compensationerrors.ErrUnknownOperation
	}
}

func (s *service) queueReplaced(
	ctx context.Context,
	tx *sql.Tx,
	rid string,
	comp *EmployeeCompensation,
	mode Mode,
	kinds []string,
) error {
	event := events.SalaryHistoryReplacedEvent{
		EventType:         events.SalaryHistoryReplacedEventType,
		RequestID:         rid,
		CompanyID:         comp.CompanyID.String(),
		EmployeeID:        comp.EmployeeID.String(),
		Mode:              string(mode),
		Operations:        kinds,
		CurrentRevisionID: comp.CurrentRevisionID,
		Basic:             comp.Basic.String(),
		OtherAllowance:    comp.OtherAllowance.String(),
		EntryCount:        len(comp.SalaryHistory),
		OccurredAt:        s.now(),
	}
	row, err := kafka.NewOutboxEvent(
		rid,
		events.CompensationAggregateType,
		comp.EmployeeID.String(),
		event.EventType,
		events.SalaryHistoryReplacedTopic,
		event,
	)
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, row)
}

// load reads the profile through the cache. Concurrent misses for the same
// employee share one query.
func (s *service) load(ctx context.Context, companyID, employeeID string) (*EmployeeCompensation, error) {
	cacheKey := GetCompensationHistoryKey(companyID, employeeID)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var comp EmployeeCompensation
			if json.Unmarshal([]byte(cached), &comp) == nil {
				metrics.HistoryCache(true)
				return &comp, nil
			}
		}
	}
	metrics.HistoryCache(false)

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		comp, err := s.repo.FindByEmployee(ctx, companyID, employeeID)
		if err != nil {
			return nil, mapRepositoryError(err)
		}

		if s.rdb != nil {
			if data, err := json.Marshal(comp); err == nil {
				if err := s.rdb.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
					s.logger.Warn("cache salary history failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}

		return comp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*EmployeeCompensation), nil
}

func (s *service) invalidate(ctx context.Context, companyID, employeeID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := GetCompensationHistoryKey(companyID, employeeID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate salary history cache",
			zap.Error(err),
			zap.String("key", cacheKey),
		)
	}
}

func (s *service) effectiveDate(raw string) (time.Time, error) {
	if raw == "" {
		return s.today(), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, compensationerrors.Validation("effectiveDate", "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

func (s *service) today() time.Time {
	return compensation.DateOf(s.now())
}

func (s *service) reject(err error) error {
	metrics.LedgerFailure(apperror.ToHTTP(err).Code)
	return err
}

func mapToResponse(comp *EmployeeCompensation, ledger []compensation.LedgerEntry, page, pageSize int) CompensationResponse {
	allowances := comp.AdditionalAllowances
	if allowances == nil {
		allowances = []compensation.Allowance{}
	}

	return CompensationResponse{
		EmployeeID:           comp.EmployeeID.String(),
		Basic:                comp.Basic,
		OtherAllowance:       comp.OtherAllowance,
		HouseRentAllowance:   comp.HouseRentAllowance,
		AdditionalAllowances: allowances,
		TotalSalary:          compensation.AggregateTotal(comp.Snapshot()),
		CurrentRevisionID:    comp.CurrentRevisionID,
		History:              compensation.BuildView(ledger, page, pageSize),
	}
}
