// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Corphon/DreamScape/internal/api"
	"github.com/Corphon/DreamScape/internal/config"
	"github.com/Corphon/DreamScape/internal/di"
	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/Corphon/DreamScape/internal/storage"
	"github.com/Corphon/DreamScape/internal/utils"
)

// Background maintenance intervals.
const (
	progressCleanupInterval = 5 * time.Minute
	progressMaxAge          = 30 * time.Minute
	lockCleanupInterval     = 10 * time.Minute
	metricsReportInterval   = 5 * time.Minute
	shutdownTimeout         = 30 * time.Second
)

// httpServer is the part of *http.Server the app drives.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App owns the configured services, the router and the HTTP server.
type App struct {
	config   *config.AppConfig
	router   http.Handler
	handler  *api.Handler
	server   httpServer
	stopChan chan os.Signal

	cancel context.CancelFunc
}

var (
	instance *App
	appMutex sync.Mutex
)

// GetApp returns the process-wide application instance.
func GetApp() *App {
	appMutex.Lock()
	defer appMutex.Unlock()
	if instance == nil {
		instance = &App{stopChan: make(chan os.Signal, 1)}
	}
	return instance
}

// GetConfig returns the configuration the app was initialized with.
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// Handler returns the API handler, nil before Initialize.
func (a *App) Handler() *api.Handler {
	return a.handler
}

// GetDIContainer returns the global service container.
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode reports whether the running app was started in debug mode.
func IsDebugMode() bool {
	appMutex.Lock()
	defer appMutex.Unlock()
	return instance != nil && instance.config != nil && instance.config.DebugMode
}

// Initialize loads the configuration below dataDir, opens the log file,
// registers the services and builds the router.
func Initialize(dataDir string) error {
	if err := config.InitConfig(dataDir); err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	cfg := config.GetCurrentConfig()

	a := GetApp()
	a.config = cfg

	if err := initLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if level, err := utils.ParseLogLevel(cfg.LogLevel); err == nil {
		utils.GetLogger().SetLogLevel(level)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	router, handler, err := api.SetupRouter()
	if err != nil {
		return err
	}
	a.router = router
	a.handler = handler

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	startMaintenance(ctx, di.GetContainer(), handler)
	return nil
}

// initLogger opens logDir/dreamscape-<date>.log.
func initLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	name := fmt.Sprintf("dreamscape-%s.log", time.Now().Format("2006-01-02"))
	return utils.InitLogger(filepath.Join(logDir, name))
}

// InitServices registers every service in the global container in
// dependency order. It reads the current configuration.
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()
	logger := utils.GetLogger().WithComponent("app")

	configService := services.NewConfigService(interpreter.DefaultRegistry)
	container.Register("config", configService)

	provider, err := configService.BuildProvider()
	if err != nil {
		return fmt.Errorf("interpreter provider %q: %w", cfg.InterpreterProvider, err)
	}

	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	locks := services.NewLockManager()
	container.Register("locks", locks)

	repo := storage.NewMemoryRepository()
	container.Register("repository", repo)

	dreamService := services.NewDreamService(provider, repo, progressService)
	container.Register("dream", dreamService)

	container.Register("session", services.NewSessionService(dreamService, locks))
	container.Register("share", services.NewShareService(repo, interpreter.DefaultSource()))

	fs, err := storage.NewFileStorage(filepath.Dir(cfg.ExportDir))
	if err != nil {
		return fmt.Errorf("export storage: %w", err)
	}
	container.Register("file_storage", fs)
	container.Register("export", services.NewExportService(fs, filepath.Base(cfg.ExportDir)))

	renderService := services.NewRenderService(services.RenderOptions{
		FrameRate: cfg.Render.FrameRate,
		Viewport:  cfg.Render.Viewport(),
	})
	container.Register("render", renderService)

	configService.SubscribeToChanges(dreamService)
	configService.SubscribeToChanges(renderService)

	logger.Info("services initialized", map[string]interface{}{
		"provider": provider.GetName(),
		"services": len(container.GetNames()),
	})
	return nil
}

// startMaintenance runs the periodic cleanups until ctx ends.
func startMaintenance(ctx context.Context, container *di.Container, handler *api.Handler) {
	if progress, err := di.Resolve[*services.ProgressService](container, "progress"); err == nil {
		progress.StartCleanup(ctx, progressCleanupInterval, progressMaxAge)
	}
	if locks, err := di.Resolve[*services.LockManager](container, "locks"); err == nil {
		locks.StartCleanup(ctx, lockCleanupInterval)
	}
	if handler != nil && handler.Metrics != nil {
		handler.Metrics.StartMetricsCollection(ctx, metricsReportInterval)
	}
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down.
func Run() error {
	a := GetApp()
	if a.config == nil {
		return errors.New("app not initialized")
	}
	if a.server == nil {
		a.server = &http.Server{
			Addr:    ":" + a.config.Port,
			Handler: a.router,
		}
	}

	logger := utils.GetLogger().WithComponent("app")
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", map[string]interface{}{"port": a.config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)

	select {
	case err := <-errCh:
		a.cleanup()
		return fmt.Errorf("server: %w", err)
	case sig := <-a.stopChan:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped", nil)
	return nil
}

// Stop asks a running Run to shut down.
func (a *App) Stop() {
	select {
	case a.stopChan <- syscall.SIGTERM:
	default:
	}
}

// cleanup stops background work, every render loop and stream, and closes
// storage and the log file.
func (a *App) cleanup() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.handler != nil && a.handler.Streams != nil {
		a.handler.Streams.CloseAll()
	}

	container := di.GetContainer()
	if renders, err := di.Resolve[*services.RenderService](container, "render"); err == nil {
		renders.StopAll()
	}
	if fs, err := di.Resolve[*storage.FileStorage](container, "file_storage"); err == nil {
		fs.Close()
	}
	utils.CloseLogger()
}
