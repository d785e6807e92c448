package appmanager

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"AdvisorDesk/api"
	"AdvisorDesk/api/imports"
	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/directory"
	"AdvisorDesk/internal/jobs"
	"AdvisorDesk/internal/logger"
	"AdvisorDesk/internal/narrative"
	"AdvisorDesk/internal/repository"
	"AdvisorDesk/internal/serviceiface"
	"AdvisorDesk/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// GenAIKeyEnv names the environment variable holding the Gemini API key.
const GenAIKeyEnv = "GEMINI_API_KEY"

var db *sql.DB
var pgxPool *pgxpool.Pool

func SetDB(database *sql.DB) {
	db = database
}

func SetPgxPool(pool *pgxpool.Pool) {
	pgxPool = pool
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// GetPgxPool returns the pgx pool connection
func GetPgxPool() *pgxpool.Pool {
	return pgxPool
}

type constructor func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error)

var serviceConstructors = map[string]constructor{
	"logger": func(_ *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		return logger.NewLoggerService(cfg), nil
	},
	"cron": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		return jobs.NewCronService(cfg, am.sessions), nil
	},
	"importer": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		deps, err := importerDeps(am, cfg)
		if err != nil {
			return nil, err
		}
		return imports.NewImportService(cfg, deps), nil
	},
	"gateway": func(_ *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		return api.NewGatewayService(cfg)
	},
}

func importerDeps(am *AppManager, cfg map[string]interface{}) (imports.Deps, error) {
	tz := stringOr(cfg, "timezone", config.DefaultTimeZone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return imports.Deps{}, fmt.Errorf("importer timezone %q: %w", tz, err)
	}
	dirTimeout, err := durationOr(cfg, "directory_timeout", config.DirectoryFetchTimeout)
	if err != nil {
		return imports.Deps{}, err
	}
	narrTimeout, err := durationOr(cfg, "narrative_timeout", config.DefaultNarrativeTimeout)
	if err != nil {
		return imports.Deps{}, err
	}

	deps := imports.Deps{
		Reference:        config.DefaultReference(),
		Sessions:         am.sessions,
		Location:         loc,
		DirectoryTimeout: dirTimeout,
	}
	if db != nil {
		if migrate, _ := cfg["migrate"].(bool); migrate {
			if err := repository.Migrate(db); err != nil {
				return imports.Deps{}, err
			}
		}
		deps.Directory = directory.NewSQLDirectory(db)
	}
	if pgxPool != nil {
		deps.Store = repository.NewPgxStore(pgxPool, loc)
	}
	if key := os.Getenv(GenAIKeyEnv); key != "" {
		n, err := narrative.NewGenAINarrator(context.Background(), key, stringOr(cfg, "narrative_model", config.DefaultNarrativeModel), narrTimeout)
		if err != nil {
			return imports.Deps{}, err
		}
		deps.Narrator = n
	}
	return deps, nil
}

func stringOr(cfg map[string]interface{}, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

func durationOr(cfg map[string]interface{}, key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(stringOr(cfg, key, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	sessions *session.Manager
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
		logger.L().Info("service started", zap.String("service", service.Name()))
	}
	return nil
}

// StopAll stops in reverse start order and keeps going past failures.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	var firstErr error
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return firstErr
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	// sort by start_order
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

// AutoRegisterServices builds the configured services in start order. The
// import session store is shared by the importer and the purge job, so it is
// created first with the importer's session_ttl.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) error {
	ttlText := config.DefaultSessionTTL
	for _, svc := range configs {
		if svc.Name == "importer" {
			ttlText = stringOr(svc.Config, "session_ttl", ttlText)
		}
	}
	ttl, err := time.ParseDuration(ttlText)
	if err != nil {
		return fmt.Errorf("session_ttl: %w", err)
	}
	am.sessions = session.NewManager(ttl)

	for _, svc := range configs {
		ctor, ok := serviceConstructors[svc.Name]
		if !ok {
			return fmt.Errorf("unknown service %q in service sequence", svc.Name)
		}
		cfg := svc.Config
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		service, err := ctor(am, cfg)
		if err != nil {
			return fmt.Errorf("failed to build service %s: %w", svc.Name, err)
		}
		am.RegisterService(service)
		if l, ok := service.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
		}
	}
	return nil
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}

// Sessions is the shared import session store.
func (am *AppManager) Sessions() *session.Manager {
	return am.sessions
}
