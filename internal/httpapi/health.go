package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

type healthResponse struct {
	Status      string  `json:"status"`
	UptimeSec   int64   `json:"uptimeSec"`
	ActiveLoops int     `json:"activeLoops"`
	Storage     string  `json:"storage"`
	CPUPercent  float64 `json:"cpuPercent"`
	RSSBytes    uint64  `json:"rssBytes"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(h.startedAt).Seconds()),
		Storage:   h.storageDriver,
	}
	if h.registry != nil {
		resp.ActiveLoops = h.registry.ActiveCount()
	}

	// Process stats are diagnostic only; failures leave the fields zero.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil {
			resp.RSSBytes = mem.RSS
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	body := map[string]any{"code": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
