package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/glue"
	"github.com/urlcleaner-go/engine/internal/unthreader"
)

// HealthService defines the interface for health check operations
type HealthService interface {
	CheckHealth(ctx context.Context) HealthStatus
}

// HealthStatus represents the overall health status of the application
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]HealthComponent `json:"components"`
}

// HealthComponent represents the health status of an individual component
type HealthComponent struct {
	Status  string                 `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthServiceImpl implements the HealthService interface. It reports on
// the resources a running Job depends on (spec.md §5): the on-disk/SQL
// cache, the HTTP fetcher used by ExpandShortLink and HTTP string
// sources, and the Unthreader serializer. db is only set when the engine
// is configured to back its cache with Postgres (internal/sqlcache)
// rather than the default file store.
type HealthServiceImpl struct {
	cache      *cache.Cache
	fetcher    glue.Fetcher
	unthreader *unthreader.Unthreader
	db         *gorm.DB
}

// NewHealthService creates a new health service instance. db may be nil
// when the file-backed cache is in use.
func NewHealthService(c *cache.Cache, fetcher glue.Fetcher, u *unthreader.Unthreader, db *gorm.DB) HealthService {
	return &HealthServiceImpl{
		cache:      c,
		fetcher:    fetcher,
		unthreader: u,
		db:         db,
	}
}

// CheckHealth performs health checks on all configured components
func (h *HealthServiceImpl) CheckHealth(ctx context.Context) HealthStatus {
	timestamp := time.Now()
	components := make(map[string]HealthComponent)

	cacheHealth := h.checkCacheHealth()
	components["cache"] = cacheHealth

	networkingHealth := h.checkNetworkingHealth()
	components["networking"] = networkingHealth

	unthreaderHealth := h.checkUnthreaderHealth()
	components["unthreader"] = unthreaderHealth

	overallStatus := "UP"
	if h.db != nil {
		dbHealth := h.checkDatabaseHealth(ctx)
		components["database"] = dbHealth
		if dbHealth.Status == "DOWN" {
			overallStatus = "DOWN"
		}
	}
	if cacheHealth.Status == "DOWN" || unthreaderHealth.Status == "DOWN" {
		overallStatus = "DOWN"
	}

	return HealthStatus{
		Status:     overallStatus,
		Timestamp:  timestamp,
		Components: components,
	}
}

// checkCacheHealth reports whether a cache instance is wired in. A missing
// cache reports DOWN, which makes the overall status DOWN.
func (h *HealthServiceImpl) checkCacheHealth() HealthComponent {
	if h.cache == nil {
		return HealthComponent{
			Status: "DOWN",
			Details: map[string]interface{}{
				"error": "no cache configured",
			},
		}
	}
	return HealthComponent{
		Status: "UP",
	}
}

// checkNetworkingHealth reports DISABLED when no Fetcher is wired in and
// UP otherwise. It does not inspect the Fetcher, so a glue.Disabled
// fetcher also reports UP.
func (h *HealthServiceImpl) checkNetworkingHealth() HealthComponent {
	if h.fetcher == nil {
		return HealthComponent{
			Status: "DISABLED",
			Details: map[string]interface{}{
				"reason": "no fetcher configured",
			},
		}
	}
	return HealthComponent{
		Status: "UP",
	}
}

// checkUnthreaderHealth reports the Unthreader's configured mode.
func (h *HealthServiceImpl) checkUnthreaderHealth() HealthComponent {
	if h.unthreader == nil {
		return HealthComponent{
			Status: "DOWN",
			Details: map[string]interface{}{
				"error": "no unthreader configured",
			},
		}
	}
	mode := "off"
	if h.unthreader.Mode() == unthreader.SerializeAll {
		mode = "always"
	}
	return HealthComponent{
		Status: "UP",
		Details: map[string]interface{}{
			"mode": mode,
		},
	}
}

// checkDatabaseHealth checks the health of the Postgres connection
// backing the SQL cache store.
func (h *HealthServiceImpl) checkDatabaseHealth(ctx context.Context) HealthComponent {
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err != nil {
		return HealthComponent{
			Status: "DOWN",
			Details: map[string]interface{}{
				"error": "Failed to get database connection",
			},
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return HealthComponent{
			Status: "DOWN",
			Details: map[string]interface{}{
				"error": err.Error(),
			},
		}
	}

	responseTime := time.Since(start)

	return HealthComponent{
		Status: "UP",
		Details: map[string]interface{}{
			"connection":   "PostgreSQL",
			"responseTime": responseTime.String(),
		},
	}
}
