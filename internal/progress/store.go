// Package progress tracks long-running generation requests so clients can
// poll for stage and completion state. Tracking is advisory: a store failure
// never fails the request being tracked.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the full tracked state of one request.
type Record struct {
	RequestID   string          `json:"request_id"`
	Status      Status          `json:"status"`
	Stage       string          `json:"stage,omitempty"`
	CurrentStep int             `json:"current_step,omitempty"`
	TotalSteps  int             `json:"total_steps,omitempty"`
	Detail      string          `json:"detail,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store persists request progress.
type Store interface {
	// Advance records the current stage of a processing request.
	Advance(ctx context.Context, requestID, stage string, currentStep, totalSteps int, detail string)
	// Complete marks the request finished with its result document.
	Complete(ctx context.Context, requestID string, result any)
	// Fail marks the request failed with a user-facing message.
	Fail(ctx context.Context, requestID, message string)
	// Get returns the record, or nil when the id is unknown.
	Get(ctx context.Context, requestID string) (*Record, error)
}

// NewStore prefers redis and falls back to an in-process map when REDIS_ADDR
// is unset or unreachable.
func NewStore(log *logger.Logger) Store {
	serviceLog := log.With("service", "ProgressStore")

	ttl := envutil.Duration("PROGRESS_TTL", 24*time.Hour)

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		serviceLog.Info("REDIS_ADDR not set; using in-memory progress store")
		return newMemoryStore(serviceLog, ttl)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		serviceLog.Warn("Redis unreachable; using in-memory progress store", "addr", addr, "error", err.Error())
		return newMemoryStore(serviceLog, ttl)
	}

	return &redisStore{
		log: serviceLog,
		rdb: rdb,
		ttl: ttl,
	}
}

// -------------------- redis --------------------

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func progressKey(requestID string) string {
	return "progress:" + strings.TrimSpace(requestID)
}

func (s *redisStore) put(ctx context.Context, rec Record) {
	rec.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(rec)
	if err != nil {
		s.log.Warn("Progress marshal failed", "request_id", rec.RequestID, "error", err.Error())
		return
	}
	if err := s.rdb.Set(ctx, progressKey(rec.RequestID), raw, s.ttl).Err(); err != nil {
		s.log.Warn("Progress write failed", "request_id", rec.RequestID, "error", err.Error())
	}
}

func (s *redisStore) Advance(ctx context.Context, requestID, stage string, currentStep, totalSteps int, detail string) {
	if strings.TrimSpace(requestID) == "" {
		return
	}
	s.put(ctx, Record{
		RequestID:   requestID,
		Status:      StatusProcessing,
		Stage:       stage,
		CurrentStep: currentStep,
		TotalSteps:  totalSteps,
		Detail:      detail,
	})
}

func (s *redisStore) Complete(ctx context.Context, requestID string, result any) {
	if strings.TrimSpace(requestID) == "" {
		return
	}
	var raw json.RawMessage
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			raw = b
		}
	}
	s.put(ctx, Record{RequestID: requestID, Status: StatusCompleted, Result: raw})
}

func (s *redisStore) Fail(ctx context.Context, requestID, message string) {
	if strings.TrimSpace(requestID) == "" {
		return
	}
	s.put(ctx, Record{RequestID: requestID, Status: StatusFailed, Error: message})
}

func (s *redisStore) Get(ctx context.Context, requestID string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, progressKey(requestID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("progress read: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("progress decode: %w", err)
	}
	return &rec, nil
}

// -------------------- in-memory fallback --------------------

type memoryStore struct {
	log *logger.Logger
	ttl time.Duration

	mu        sync.RWMutex
	m         map[string]memoryRecord
	nextSweep time.Time
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

func newMemoryStore(log *logger.Logger, ttl time.Duration) *memoryStore {
	return &memoryStore{
		log:       log,
		ttl:       ttl,
		m:         map[string]memoryRecord{},
		nextSweep: time.Now().Add(ttl),
	}
}

func (s *memoryStore) put(rec Record) {
	rec.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.m[rec.RequestID] = memoryRecord{rec: rec, expiresAt: rec.UpdatedAt.Add(s.ttl)}
	// Records for ids nobody polls still expire: sweep once per TTL window.
	if now := time.Now(); now.After(s.nextSweep) {
		for id, entry := range s.m {
			if now.After(entry.expiresAt) {
				delete(s.m, id)
			}
		}
		s.nextSweep = now.Add(s.ttl)
	}
	s.mu.Unlock()
}

func (s *memoryStore) Advance(_ context.Context, requestID, stage string, currentStep, totalSteps int, detail string) {
	if strings.TrimSpace(requestID) == "" {
		return
	}
	s.put(Record{
		RequestID:   requestID,
		Status:      StatusProcessing,
		Stage:       stage,
		CurrentStep: currentStep,
		TotalSteps:  totalSteps,
		Detail:      detail,
	})
}

func (s *memoryStore) Complete(_ context.Context, requestID string, result any) {
	if strings.TrimSpace(requestID) == "" {
		return
	}
	var raw json.RawMessage
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			raw = b
		}
	}
	s.put(Record{RequestID: requestID, Status: StatusCompleted, Result: raw})
}

func (s *memoryStore) Fail(_ context.Context, requestID, message string) {
	if strings.TrimSpace(requestID) == "" {
		return
	}
	s.put(Record{RequestID: requestID, Status: StatusFailed, Error: message})
}

func (s *memoryStore) Get(_ context.Context, requestID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.m[requestID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.m, requestID)
		return nil, nil
	}
	rec := entry.rec
	return &rec, nil
}
