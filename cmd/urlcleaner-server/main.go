package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/cleaner"
	"github.com/urlcleaner-go/engine/internal/config"
	"github.com/urlcleaner-go/engine/internal/glue"
	infraauth "github.com/urlcleaner-go/engine/internal/infra/auth"
	"github.com/urlcleaner-go/engine/internal/infra/handler"
	"github.com/urlcleaner-go/engine/internal/infra/service"
	"github.com/urlcleaner-go/engine/internal/sqlcache"
	"github.com/urlcleaner-go/engine/internal/unthreader"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	program, err := loadProgram(cfg.Engine.CleanerProgramPath)
	if err != nil {
		log.Fatal("Failed to load cleaner program:", err)
	}

	var fetcher glue.Fetcher
	if cfg.Engine.NetworkingEnabled {
		fetcher = glue.NewHTTPFetcher(15 * time.Second)
	} else {
		fetcher = glue.Disabled()
	}

	mode := unthreader.Off
	if cfg.Engine.UnthreaderMode == "always" {
		mode = unthreader.SerializeAll
	}
	u := unthreader.New(mode)

	var db *gorm.DB
	c, err := buildCache(cfg, u, &db)
	if err != nil {
		log.Fatal("Failed to initialize cache:", err)
	}
	defer c.Close()

	validator, err := loadRequestValidator()
	if err != nil {
		log.Fatal("Failed to load OpenAPI document:", err)
	}

	authService, err := infraauth.NewAuthenticationService(*cfg)
	if err != nil {
		log.Fatal("Failed to initialize authentication:", err)
	}
	authMiddleware := handler.NewAuthenticationMiddleware(authService)

	healthService := service.NewHealthService(c, fetcher, u, db)
	healthHandler := handler.NewHealthHandler(healthService)

	router := echo.New()
	router.Use(echoprometheus.NewMiddleware(cfg.ServiceName))
	router.Use(otelecho.Middleware(cfg.ServiceName))
	router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
	}))

	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":8081"); err != nil {
			log.Println("metrics server stopped:", err)
		}
	}()

	router.GET("/health", healthHandler.GetHealth)

	cleanH := &cleanHandler{
		program:         program,
		defaultProfile:  cfg.Engine.DefaultProfile,
		subjectProfiles: cfg.Engine.SubjectProfiles,
		fetcher:         fetcher,
		cache:           c,
		unthreader:      u,
		validator:       validator,
	}

	cleanGroup := router.Group("/clean")
	cleanGroup.Use(authMiddleware.MiddlewareFunc())
	cleanGroup.POST("", cleanH.PostClean)

	if err := router.Start(":8080"); err != nil {
		log.Fatal("Failed to start server:", err.Error())
	}
}

// loadProgram reads and parses the cleaner program this server runs every
// request against (spec.md §4.J — the program itself is data, out of this
// repo's scope to author; the server just needs to be able to load one).
func loadProgram(path string) (*cleaner.Cleaner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cleaner.ParseCleaner(data)
}

// buildCache constructs the engine's Cache per cfg.Engine.CacheBackend. For
// the Postgres backend it opens a *gorm.DB, wraps it in sqlcache.Store,
// preloads every stored entry, and wires Store.Put as the cache's
// OnPersist hook so new builds flow back to the same table; *db is set so
// the caller's health check can ping it. For the file backend db stays
// nil.
func buildCache(cfg *config.Config, u *unthreader.Unthreader, db **gorm.DB) (*cache.Cache, error) {
	cacheCfg := cache.Config{
		Read:  cfg.Engine.CacheRead,
		Write: cfg.Engine.CacheWrite,
		Delay: cfg.Engine.CacheDelay,
	}

	if cfg.Engine.CacheBackend != config.CacheBackendPostgres {
		cacheCfg.Path = cfg.Engine.CachePath
		return cache.New(cacheCfg, u)
	}

	conn, err := gorm.Open(postgres.Open(dsn(cfg.Database)), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	*db = conn

	store, err := sqlcache.New(conn)
	if err != nil {
		return nil, err
	}

	seed, err := store.LoadAll(context.Background())
	if err != nil {
		return nil, err
	}
	cacheCfg.Seed = make(map[cache.EntryKey]cache.SeedEntry, len(seed))
	for ek, res := range seed {
		cacheCfg.Seed[ek] = cache.SeedEntry{Value: res.Value, Err: res.Err, Duration: res.Duration}
	}
	cacheCfg.OnPersist = func(ek cache.EntryKey, se cache.SeedEntry) error {
		return store.Put(context.Background(), ek, sqlcache.StoredResult{Value: se.Value, Err: se.Err, Duration: se.Duration})
	}

	return cache.New(cacheCfg, u)
}

func dsn(dc config.DatabaseConfig) string {
	return "host=" + dc.Host + " user=" + dc.User + " password=" + dc.Password +
		" dbname=" + dc.Name + " port=" + dc.Port + " sslmode=disable"
}
