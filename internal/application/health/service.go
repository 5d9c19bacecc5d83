package health

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type DatabaseCheck struct {
	Status       string `json:"status"`
	Name         string `json:"name"`
	ResponseTime string `json:"responseTime"`
	Error        string `json:"error,omitempty"`
}

type Memory struct {
	Alloc      string `json:"alloc"`
	TotalAlloc string `json:"totalAlloc"`
	Sys        string `json:"sys"`
	HeapInuse  string `json:"heapInuse"`
}

type Process struct {
	PID       int    `json:"pid"`
	GoVersion string `json:"goVersion"`
	Memory    Memory `json:"memory"`
}

type System struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	CPUCount int    `json:"cpuCount"`
}

type Detailed struct {
	Goroutines   int    `json:"goroutines"`
	NumGC        uint32 `json:"numGC"`
	LastGC       string `json:"lastGC,omitempty"`
	PauseTotal   string `json:"pauseTotal"`
	HeapObjects  uint64 `json:"heapObjects"`
	NextGCTarget string `json:"nextGCTarget"`
}

// Report is the body of GET /health.
type Report struct {
	Status       string                   `json:"status"`
	Message      string                   `json:"message"`
	Timestamp    time.Time                `json:"timestamp"`
	ResponseTime string                   `json:"responseTime"`
	Environment  string                   `json:"environment"`
	Uptime       string                   `json:"uptime"`
	Checks       map[string]DatabaseCheck `json:"checks"`
	Process      Process                  `json:"process"`
	System       System                   `json:"system"`
	Detailed     *Detailed                `json:"detailed,omitempty"`
}

// Healthy reports whether every dependency check passed.
func (r *Report) Healthy() bool {
	return r.Status == StatusHealthy
}

type Service interface {
	Check(ctx context.Context, detailed bool) *Report
}

type service struct {
	db      Pinger
	dbName  string
	env     string
	started time.Time
	now     func() time.Time
}

func NewService(db Pinger, dbName, env string) Service {
	return &service{db: db, dbName: dbName, env: env, started: time.Now(), now: time.Now}
}

func (s *service) Check(ctx context.Context, detailed bool) *Report {
	start := s.now()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	db := DatabaseCheck{Status: StatusHealthy, Name: s.dbName}
	pingStart := s.now()
	if err := s.db.Ping(ctx); err != nil {
		db.Status = StatusUnhealthy
		db.Error = err.Error()
	}
	db.ResponseTime = fmt.Sprintf("%dms", s.now().Sub(pingStart).Milliseconds())

	r := &Report{
		Status:      StatusHealthy,
		Message:     "Backend is running smoothly",
		Environment: s.env,
		Uptime:      formatUptime(s.now().Sub(s.started)),
		Checks:      map[string]DatabaseCheck{"database": db},
		System: System{
			Platform: runtime.GOOS,
			Arch:     runtime.GOARCH,
			CPUCount: runtime.NumCPU(),
		},
	}
	if db.Status != StatusHealthy {
		r.Status = StatusDegraded
		r.Message = "Backend is experiencing issues"
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.Process = Process{
		PID:       os.Getpid(),
		GoVersion: runtime.Version(),
		Memory: Memory{
			Alloc:      mb(ms.Alloc),
			TotalAlloc: mb(ms.TotalAlloc),
			Sys:        mb(ms.Sys),
			HeapInuse:  mb(ms.HeapInuse),
		},
	}
	if detailed {
		d := &Detailed{
			Goroutines:   runtime.NumGoroutine(),
			NumGC:        ms.NumGC,
			PauseTotal:   time.Duration(ms.PauseTotalNs).String(),
			HeapObjects:  ms.HeapObjects,
			NextGCTarget: mb(ms.NextGC),
		}
		if ms.LastGC > 0 {
			d.LastGC = time.Unix(0, int64(ms.LastGC)).UTC().Format(time.RFC3339)
		}
		r.Detailed = d
	}
	end := s.now()
	r.Timestamp = end.UTC()
	r.ResponseTime = fmt.Sprintf("%dms", end.Sub(start).Milliseconds())
	return r
}

func mb(b uint64) string {
	return fmt.Sprintf("%dMB", b/1024/1024)
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, sec)
}
