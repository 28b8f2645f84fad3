package employeesalary

import (
	"context"
	"database/sql"

	"go-hris-ledger/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_salary_repo.go -destination=mock/employee_salary_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, comp *EmployeeCompensation) error
	FindByEmployee(ctx context.Context, companyID, employeeID string) (*EmployeeCompensation, error)
	ReplaceHistory(ctx context.Context, comp *EmployeeCompensation) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

// conn runs statements on the bound transaction when there is one.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, comp *EmployeeCompensation) error {
	return r.conn(ctx).Create(comp).Error
}

func (r *repository) FindByEmployee(ctx context.Context, companyID, employeeID string) (*EmployeeCompensation, error) {
	var comp EmployeeCompensation
	err := r.conn(ctx).
		Scopes(tenant.EmployeeScope(companyID, employeeID)).
		First(&comp).Error
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

// ReplaceHistory overwrites the versioned fields and the whole history array
// in a single statement.
func (r *repository) ReplaceHistory(ctx context.Context, comp *EmployeeCompensation) error {
	res := r.conn(ctx).
		Model(comp).
		Scopes(tenant.EmployeeScope(comp.CompanyID.String(), comp.EmployeeID.String())).
		Select("basic", "other_allowance", "current_revision_id", "salary_history", "updated_at").
		Updates(comp)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
