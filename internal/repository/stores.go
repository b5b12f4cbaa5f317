package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
)

type entryStore interface {
	List(ctx context.Context) ([]models.TimetableEntry, error)
	ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error
}

type teacherLoadStore interface {
	List(ctx context.Context) ([]models.TeacherLoad, error)
}

type batchStore interface {
	List(ctx context.Context) ([]models.Batch, error)
}

type examBlockStore interface {
	ListActive(ctx context.Context) ([]models.ExamBlock, error)
}

type absenceStore interface {
	CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error
	GetAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error)
	ListAbsences(ctx context.Context, date string) ([]models.TeacherAbsence, error)
	DeleteAbsence(ctx context.Context, id string) (int, error)
	CreateAssignment(ctx context.Context, assignment *models.SubstitutionAssignment) error
	GetAssignment(ctx context.Context, id string) (*models.SubstitutionAssignment, error)
	ListAssignments(ctx context.Context, date string) ([]models.SubstitutionAssignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, status models.SubstitutionStatus, updatedAt time.Time) error
	DeleteAssignment(ctx context.Context, id string) error
}

// Stores bundles the repositories selected by TIMETABLE_STORAGE.
type Stores struct {
	Entries    entryStore
	Teachers   teacherLoadStore
	Batches    batchStore
	ExamBlocks examBlockStore
	Absences   absenceStore

	// DB is nil for the memory backend.
	DB *sqlx.DB
}

// Ping checks the database connection; the memory backend is always ready.
func (s *Stores) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.PingContext(ctx)
}

// Close releases the database connection, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStores connects the configured backend. Postgres is migrated first when
// DB_AUTO_MIGRATE is set; the memory backend starts from TIMETABLE_SEED_FILE.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Timetable.Storage {
	case config.StorageMemory:
		seed, err := LoadSeed(cfg.Timetable.SeedFile)
		if err != nil {
			return nil, err
		}
		logger.Info("using in-memory storage",
			zap.String("seed_file", cfg.Timetable.SeedFile),
			zap.Int("teachers", len(seed.Teachers)),
			zap.Int("entries", len(seed.Entries)),
		)
		return NewMemoryStores(seed), nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			migrator, err := database.NewMigrator(db, logger)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			if err := migrator.Up(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return NewPostgresStores(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Timetable.Storage)
	}
}

// NewPostgresStores wires the sqlx repositories on db.
func NewPostgresStores(db *sqlx.DB) *Stores {
	return &Stores{
		Entries:    NewTimetableEntryRepository(db),
		Teachers:   NewTeacherLoadRepository(db),
		Batches:    NewBatchRepository(db),
		ExamBlocks: NewExamBlockRepository(db),
		Absences:   NewAbsenceRepository(db),
		DB:         db,
	}
}

// NewMemoryStores builds process-local repositories from seed.
func NewMemoryStores(seed *Seed) *Stores {
	if seed == nil {
		seed = &Seed{}
	}
	return &Stores{
		Entries:    NewMemoryEntryRepository(seed.Entries),
		Teachers:   NewMemoryTeacherLoadRepository(seed.Teachers),
		Batches:    NewMemoryBatchRepository(seed.Batches),
		ExamBlocks: NewMemoryExamBlockRepository(seed.ExamBlocks),
		Absences:   NewMemoryAbsenceStore(),
	}
}
