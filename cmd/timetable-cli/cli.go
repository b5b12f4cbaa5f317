package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// cli holds the admin command tree. Storage is opened lazily per command.
type cli struct {
	cfg        *config.Config
	logger     *zap.Logger
	openStores func(ctx context.Context) (*repository.Stores, error)
	openDB     func(ctx context.Context) (*sqlx.DB, error)
	root       *cobra.Command
}

func newCLI(cfg *config.Config, logger *zap.Logger) *cli {
	c := &cli{
		cfg:    cfg,
		logger: logger,
		openStores: func(ctx context.Context) (*repository.Stores, error) {
			return repository.OpenStores(ctx, cfg, logger)
		},
		openDB: func(ctx context.Context) (*sqlx.DB, error) {
			return database.NewPostgres(ctx, cfg.Database)
		},
	}

	c.root = &cobra.Command{
		Use:           "timetable-cli",
		Short:         "Administer the timetable database, exam blocks and exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.root.AddCommand(c.migrateCmd())
	c.root.AddCommand(c.seedCmd())
	c.root.AddCommand(c.blocksCmd())
	c.root.AddCommand(c.exportCmd())
	return c
}

func (c *cli) execute(ctx context.Context, args []string) error {
	c.root.SetArgs(args)
	return c.root.ExecuteContext(ctx)
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	run := func(action func(ctx context.Context, m *database.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			db, err := c.openDB(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()
			migrator, err := database.NewMigrator(db, c.logger)
			if err != nil {
				return err
			}
			return action(cmd.Context(), migrator)
		}
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: run(func(ctx context.Context, m *database.Migrator) error {
			return m.Up(ctx)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied state of each migration",
		RunE: run(func(ctx context.Context, m *database.Migrator) error {
			if err := m.Status(ctx); err != nil {
				return err
			}
			version, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		}),
	})
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load teachers, batches, exam blocks and entries from a seed file into postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = c.cfg.Timetable.SeedFile
			}
			if file == "" {
				return errors.New("--file or TIMETABLE_SEED_FILE is required")
			}
			seed, err := repository.LoadSeed(file)
			if err != nil {
				return err
			}
			db, err := c.openDB(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()
			if err := applySeed(cmd.Context(), db, seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d teachers, %d batches, %d exam blocks, %d entries\n",
				len(seed.Teachers), len(seed.Batches), len(seed.ExamBlocks), len(seed.Entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file (JSON or YAML)")
	return cmd
}

// applySeed upserts reference data; blocks keep their file order as sort order.
func applySeed(ctx context.Context, db *sqlx.DB, seed *repository.Seed) error {
	if err := service.CheckEntrySet(seed.Entries); err != nil {
		return fmt.Errorf("seed entries: %w", err)
	}
	teachers := repository.NewTeacherLoadRepository(db)
	for _, load := range seed.Teachers {
		if err := teachers.Upsert(ctx, load); err != nil {
			return fmt.Errorf("seed teacher %s: %w", load.TeacherID, err)
		}
	}
	batches := repository.NewBatchRepository(db)
	for _, batch := range seed.Batches {
		if err := batches.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("seed batch %s: %w", batch.ID, err)
		}
	}
	blocks := repository.NewExamBlockRepository(db)
	for i, block := range seed.ExamBlocks {
		if err := block.Validate(); err != nil {
			return fmt.Errorf("seed exam block: %w", err)
		}
		if err := blocks.Upsert(ctx, block, i); err != nil {
			return fmt.Errorf("seed exam block %s: %w", block.ID, err)
		}
	}
	if len(seed.Entries) > 0 {
		if err := repository.NewTimetableEntryRepository(db).ReplaceAll(ctx, seed.Entries); err != nil {
			return fmt.Errorf("seed entries: %w", err)
		}
	}
	return nil
}

func (c *cli) blocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Inspect active exam and activity blocks",
	}

	var date, batchID string
	var period int
	check := &cobra.Command{
		Use:   "check",
		Short: "Report whether a dated period is blocked for a batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := dateutil.ParseDate(date)
			if err != nil {
				return err
			}
			if period < 1 || strings.TrimSpace(batchID) == "" {
				return errors.New("--period must be positive and --batch is required")
			}
			svc, closeFn, err := c.examBlocks(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			result, err := svc.IsSlotBlocked(cmd.Context(), day, period, batchID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !result.Blocked {
				fmt.Fprintf(out, "%s period %d for %s is free\n", dateutil.FormatDate(day), period, batchID)
				return nil
			}
			fmt.Fprintf(out, "%s period %d for %s is blocked by %s (%s, %s)\n",
				dateutil.FormatDate(day), period, batchID, result.BlockName, result.BlockID, result.TimeType)
			return nil
		},
	}
	check.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	check.Flags().IntVar(&period, "period", 0, "period number")
	check.Flags().StringVar(&batchID, "batch", "", "batch id")
	_ = check.MarkFlagRequired("date")
	_ = check.MarkFlagRequired("period")
	_ = check.MarkFlagRequired("batch")

	var listDate string
	list := &cobra.Command{
		Use:   "list",
		Short: "List active blocks, optionally only those covering --date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := c.examBlocks(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			var blocks []models.ExamBlock
			if listDate != "" {
				day, err := dateutil.ParseDate(listDate)
				if err != nil {
					return err
				}
				blocks, err = svc.BlocksForDate(cmd.Context(), day)
				if err != nil {
					return err
				}
			} else if blocks, err = svc.ListActive(cmd.Context()); err != nil {
				return err
			}
			for _, block := range blocks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s/%s\t%s\n", block.ID, block.Name, block.ScopeType, scopeID(block), block.TimeType)
			}
			return nil
		},
	}
	list.Flags().StringVar(&listDate, "date", "", "date (YYYY-MM-DD)")

	cmd.AddCommand(check, list)
	return cmd
}

func (c *cli) examBlocks(ctx context.Context) (*service.ExamBlockService, func(), error) {
	stores, err := c.openStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = stores.Close() }
	var opts []service.ResolverOption
	batches, err := stores.Batches.List(ctx)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("list batches: %w", err)
	}
	if len(batches) > 0 {
		opts = append(opts, service.WithBatchMembership(service.NewBatchDirectory(batches)))
	}
	clock, err := service.ParsePeriodClock(c.cfg.Timetable.PeriodTimes)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("TIMETABLE_PERIOD_TIMES: %w", err)
	}
	if clock != nil {
		opts = append(opts, service.WithPeriodClock(clock))
	}
	return service.NewExamBlockService(stores.ExamBlocks, nil, 0, c.logger, opts...), closeFn, nil
}

func scopeID(block models.ExamBlock) string {
	if block.ScopeID == nil {
		return "*"
	}
	return *block.ScopeID
}

func (c *cli) exportCmd() *cobra.Command {
	var format, dir, teacherID, batchID, day, delimiter string
	var prune time.Duration
	var bom bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved timetable as CSV or PDF into a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores, err := c.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			timetableCfg := service.TimetableConfig{
				WorkingDays:   c.cfg.Timetable.WorkingDays,
				PeriodsPerDay: c.cfg.Timetable.PeriodsPerDay,
			}
			timetable := service.NewTimetableService(stores.Entries, stores.Teachers, timetableCfg, nil, c.logger)
			if err := timetable.Load(cmd.Context()); err != nil {
				return err
			}

			files, err := storage.NewLocalStorage(dir)
			if err != nil {
				return err
			}
			if prune > 0 {
				removed, err := files.CleanupOlderThan(prune)
				if err != nil {
					return err
				}
				for _, name := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "pruned %s\n", name)
				}
			}

			csvOpts, err := csvOptions(delimiter, bom)
			if err != nil {
				return err
			}
			exporter := service.NewExportService(timetable.Store(), timetableCfg, c.logger, export.NewCSVExporter(csvOpts...), nil)
			path, err := exporter.Archive(files, models.EntryFilter{Day: day, TeacherID: teacherID, BatchID: batchID}, strings.ToLower(format))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", service.ExportFormatCSV, "csv or pdf")
	cmd.Flags().StringVar(&dir, "dir", "exports", "output directory")
	cmd.Flags().StringVar(&teacherID, "teacher", "", "only this teacher's lessons")
	cmd.Flags().StringVar(&batchID, "batch", "", "only this batch's lessons")
	cmd.Flags().StringVar(&day, "day", "", "only this weekday")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete exports older than this before writing")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "csv field separator")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix csv output with a UTF-8 byte order mark")
	return cmd
}

func csvOptions(delimiter string, bom bool) ([]export.CSVOption, error) {
	runes := []rune(delimiter)
	if len(runes) != 1 {
		return nil, fmt.Errorf("--delimiter must be a single character, got %q", delimiter)
	}
	opts := []export.CSVOption{export.WithDelimiter(runes[0])}
	if bom {
		opts = append(opts, export.WithBOM())
	}
	return opts, nil
}
