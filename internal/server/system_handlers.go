package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantfolio/quantfolio/internal/database"
	"github.com/quantfolio/quantfolio/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	jobStats  func() map[string]scheduler.JobStats
	started   time.Time
}

// NewSystemHandlers creates a new system handlers instance. jobStats may be
// nil when no scheduler is running.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	jobStats func() map[string]scheduler.JobStats,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		databases: databases,
		jobStats:  jobStats,
		started:   time.Now(),
	}
}

// HandleHealth handles GET /health — liveness plus per-database integrity.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	checks := make(map[string]string, len(h.databases))
	for name, db := range h.databases {
		if err := db.HealthCheck(ctx); err != nil {
			h.log.Error().Err(err).Str("database", name).Msg("Health check failed")
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	h.writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"databases": checks,
		"uptime_s":  int64(time.Since(h.started).Seconds()),
	})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"uptime_s": int64(time.Since(h.started).Seconds()),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		response["cpu_percent"] = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		response["memory_percent"] = memStat.UsedPercent
		response["memory_used_mb"] = float64(memStat.Used) / 1024 / 1024
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": response,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleJobStats handles GET /api/system/jobs — per-job run history of the
// maintenance scheduler.
func (h *SystemHandlers) HandleJobStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]scheduler.JobStats{}
	if h.jobStats != nil {
		stats = h.jobStats()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"jobs": stats,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{}, len(h.databases))
	for name, db := range h.databases {
		entry := map[string]interface{}{"path": db.Path()}
		if info, err := os.Stat(db.Path()); err == nil {
			entry["size_mb"] = float64(info.Size()) / 1024 / 1024
		}
		stats[name] = entry
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"databases": stats,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDiskUsage handles GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := disk.Usage(filepath.Clean(h.dataDir))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read disk usage")
		http.Error(w, "Failed to read disk usage", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"path":         h.dataDir,
			"total_gb":     float64(usage.Total) / 1024 / 1024 / 1024,
			"free_gb":      float64(usage.Free) / 1024 / 1024 / 1024,
			"used_percent": usage.UsedPercent,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
