// stores/gorm_store.go
package stores

import (
	"context"
	"errors"
	"fmt"

	"coin-task-desk/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists profiles, tasks and the ledger in postgres. Inside
// WithinTx single-record reads take a row lock (SELECT ... FOR UPDATE) so a
// read-modify-write on one entity is serialized across servers.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OpenPostgres connects to dsn and migrates the marketplace tables.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.UserProfile{},
		&models.Task{},
		&models.Transaction{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Profiles() ProfileStore { return gormProfiles{s} }
func (s *GormStore) Tasks() TaskStore       { return gormTasks{s} }
func (s *GormStore) Ledger() LedgerStore    { return gormLedger{s} }

func (s *GormStore) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// locked returns a query that row-locks what it reads when inside a transaction.
func (s *GormStore) locked(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrVersionConflict
	default:
		return err
	}
}

// saveVersioned inserts rec when *version is zero, otherwise updates the row
// only if it still carries the expected version.
func saveVersioned(q *gorm.DB, rec any, version *int64) error {
	expected := *version
	*version = expected + 1

	if expected == 0 {
		if err := q.Create(rec).Error; err != nil {
			*version = expected
			return translate(err)
		}
		return nil
	}

	res := q.Model(rec).Where("version = ?", expected).Select("*").Updates(rec)
	if res.Error != nil {
		*version = expected
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		*version = expected
		return ErrVersionConflict
	}
	return nil
}

type gormProfiles struct{ s *GormStore }

func (g gormProfiles) GetAll(ctx context.Context) ([]models.UserProfile, error) {
	var out []models.UserProfile
	if err := g.s.query(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g gormProfiles) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := g.s.locked(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (g gormProfiles) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := g.s.locked(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (g gormProfiles) Upsert(ctx context.Context, p *models.UserProfile) error {
	return saveVersioned(g.s.query(ctx), p, &p.Version)
}

type gormTasks struct{ s *GormStore }

func (g gormTasks) GetAll(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	if err := g.s.query(ctx).Order("created_at DESC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g gormTasks) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	if err := g.s.locked(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (g gormTasks) Upsert(ctx context.Context, t *models.Task) error {
	return saveVersioned(g.s.query(ctx), t, &t.Version)
}

func (g gormTasks) UpsertMany(ctx context.Context, tasks []*models.Task) error {
	return g.s.WithinTx(ctx, func(tx Store) error {
		for _, t := range tasks {
			if err := tx.Tasks().Upsert(ctx, t); err != nil {
				return fmt.Errorf("upsert task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

type gormLedger struct{ s *GormStore }

func (g gormLedger) Append(ctx context.Context, tx *models.Transaction) error {
	return translate(g.s.query(ctx).Create(tx).Error)
}

func (g gormLedger) GetAll(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := g.s.query(ctx).Order("recorded_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g gormLedger) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := g.s.locked(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (g gormLedger) GetByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	out := []models.Transaction{}
	err := g.s.query(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g gormLedger) UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) error {
	res := g.s.query(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := g.s.query(ctx).Model(&models.Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStatusMismatch
}
