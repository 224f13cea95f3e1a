// Package wire provides dependency injection for propcheck.
// It creates singleton services with lazy initialization.
package wire

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/adapters/admin"
	cliadapter "github.com/example/propcheck/internal/adapters/cli"
	"github.com/example/propcheck/internal/adapters/directory"
	"github.com/example/propcheck/internal/adapters/notify"
	"github.com/example/propcheck/internal/adapters/sqlite"
	"github.com/example/propcheck/internal/app"
	"github.com/example/propcheck/internal/config"
	"github.com/example/propcheck/internal/db"
	"github.com/example/propcheck/internal/logging"
	"github.com/example/propcheck/internal/ports/primary"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger

	database         *sqlx.DB
	notifier         *notify.AuditNotifier
	schedulerService primary.SchedulerService
	checklistService primary.ChecklistService
	approvalService  primary.ApprovalService
	templateService  primary.TemplateService
	propertyService  primary.PropertyService
	auditService     primary.AuditService
	once             sync.Once
)

// Configure loads configuration from path (empty means the default location)
// and builds the process logger. It must run before any service accessor.
func Configure(path string) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loaded, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	cfgPath = path
	cfg = loaded
	logger = logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return nil
}

// ConfigPath returns the file Configure read, or the default location.
func ConfigPath() string {
	if cfgPath == "" {
		return config.DefaultConfigPath()
	}
	return cfgPath
}

// Config returns the loaded configuration, or defaults if Configure was
// never called.
func Config() *config.Config {
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	if logger == nil {
		logger = logging.New(Config().Log, os.Stderr)
	}
	return logger
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	c := Config()
	log := Logger()

	var err error
	database, err = db.Open(c.Database.Path, c.Database.Driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	// Repository adapters (secondary ports)
	templateRepo := sqlite.NewTemplateRepository(database)
	propertyRepo := sqlite.NewPropertyRepository(database)
	ledgerRepo := sqlite.NewLedgerRepository(database)
	checklistRepo := sqlite.NewChecklistRepository(database)
	responseRepo := sqlite.NewResponseRepository(database)
	auditRepo := sqlite.NewAuditRepository(database)

	notifier = notify.NewAuditNotifier(auditRepo, log, notify.DefaultQueueSize)
	resolver := directory.NewStaffResolver(propertyRepo, checklistRepo)

	generator := app.NewGenerator(templateRepo, propertyRepo, resolver, ledgerRepo, checklistRepo,
		notifier, log, c.Scheduler.AssignTimeout)

	// Services (primary ports implementation)
	schedulerService = app.NewSchedulerService(templateRepo, ledgerRepo, generator, notifier, app.SchedulerConfig{
		IntervalMinutes: c.Scheduler.IntervalMinutes,
		Workers:         c.Scheduler.Workers,
		LookbackDays:    c.Scheduler.LookbackDays,
		StaleAfter:      c.Scheduler.StaleAfter(),
	}, log)
	checklistService = app.NewChecklistService(checklistRepo, responseRepo, templateRepo, propertyRepo, notifier, log)
	approvalService = app.NewApprovalService(checklistRepo, responseRepo, notifier, log)
	templateService = app.NewTemplateService(templateRepo, propertyRepo, log)
	propertyService = app.NewPropertyService(propertyRepo, log)
	auditService = app.NewAuditService(auditRepo)
}

// Database returns the shared database handle.
func Database() *sqlx.DB {
	once.Do(initServices)
	return database
}

// SchedulerService returns the singleton SchedulerService instance.
func SchedulerService() primary.SchedulerService {
	once.Do(initServices)
	return schedulerService
}

// ChecklistService returns the singleton ChecklistService instance.
func ChecklistService() primary.ChecklistService {
	once.Do(initServices)
	return checklistService
}

// ApprovalService returns the singleton ApprovalService instance.
func ApprovalService() primary.ApprovalService {
	once.Do(initServices)
	return approvalService
}

// TemplateService returns the singleton TemplateService instance.
func TemplateService() primary.TemplateService {
	once.Do(initServices)
	return templateService
}

// PropertyService returns the singleton PropertyService instance.
func PropertyService() primary.PropertyService {
	once.Do(initServices)
	return propertyService
}

// AuditService returns the singleton AuditService instance.
func AuditService() primary.AuditService {
	once.Do(initServices)
	return auditService
}

// AdminServer returns a new admin HTTP server bound to the configured address.
func AdminServer() *admin.Server {
	return admin.NewServer(Config().Admin.Addr, SchedulerService(), Logger())
}

// Shutdown flushes queued audit events and closes the database. Safe to call
// when services were never initialized.
func Shutdown() {
	if notifier != nil {
		notifier.Close()
	}
	if database != nil {
		database.Close()
	}
}

// ChecklistAdapter returns a new ChecklistAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func ChecklistAdapter() *cliadapter.ChecklistAdapter {
	return ChecklistAdapterWithOutput(os.Stdout)
}

// ChecklistAdapterWithOutput returns a new ChecklistAdapter writing to the given output.
func ChecklistAdapterWithOutput(out io.Writer) *cliadapter.ChecklistAdapter {
	return cliadapter.NewChecklistAdapter(ChecklistService(), out)
}

// SchedulerAdapter returns a new SchedulerAdapter writing to stdout.
func SchedulerAdapter() *cliadapter.SchedulerAdapter {
	return cliadapter.NewSchedulerAdapter(SchedulerService(), os.Stdout)
}

// TemplateAdapter returns a new TemplateAdapter writing to stdout.
func TemplateAdapter() *cliadapter.TemplateAdapter {
	return cliadapter.NewTemplateAdapter(TemplateService(), os.Stdout)
}
