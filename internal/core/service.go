package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the service's tunables. The server maps internal/config onto it.
type Config struct {
	DefaultPageLimit int
	MaxPageLimit     int
	QueryTimeout     time.Duration

	MutationTimeout time.Duration
	MutationsSync   int
	VerifyUnique    bool
	VerifyColumns   bool

	ExportDefaultCap    int
	ExportMaxCap        int
	ExportMaxConcurrent int
	ExportMaxWait       time.Duration
	ExportFlushEvery    int

	AuditCapacity int
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		DefaultPageLimit:    1000,
		MaxPageLimit:        10000,
		QueryTimeout:        60 * time.Second,
		MutationTimeout:     5 * time.Minute,
		MutationsSync:       1,
		VerifyUnique:        true,
		VerifyColumns:       true,
		ExportDefaultCap:    50000,
		ExportMaxCap:        1000000,
		ExportMaxConcurrent: DefaultMaxConcurrentExports,
		ExportMaxWait:       DefaultMaxWaitTime,
		ExportFlushEvery:    1000,
		AuditCapacity:       DefaultAuditCapacity,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultPageLimit <= 0 {
		c.DefaultPageLimit = d.DefaultPageLimit
	}
	if c.MaxPageLimit < c.DefaultPageLimit {
		c.MaxPageLimit = max(d.MaxPageLimit, c.DefaultPageLimit)
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	if c.MutationTimeout <= 0 {
		c.MutationTimeout = d.MutationTimeout
	}
	if c.ExportDefaultCap <= 0 {
		c.ExportDefaultCap = d.ExportDefaultCap
	}
	if c.ExportMaxCap < c.ExportDefaultCap {
		c.ExportMaxCap = max(d.ExportMaxCap, c.ExportDefaultCap)
	}
	if c.ExportFlushEvery <= 0 {
		c.ExportFlushEvery = d.ExportFlushEvery
	}
	return c
}

// Service provides the table browsing and mutation operations.
type Service struct {
	engine  Engine
	cfg     Config
	exports *ExportLimiter
	audit   *auditTrail
	locks   *tableLocks
	now     func() time.Time
}

// NewService creates a new Service instance over engine.
func NewService(engine Engine, cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		engine:  engine,
		cfg:     cfg,
		exports: NewExportLimiter(cfg.ExportMaxConcurrent, cfg.ExportMaxWait),
		audit:   newAuditTrail(cfg.AuditCapacity),
		locks:   newTableLocks(),
		now:     time.Now,
	}
}

// SetClock replaces the clock used for elapsed times and export file dates.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Exports returns the limiter guarding concurrent exports.
func (s *Service) Exports() *ExportLimiter {
	return s.exports
}

// Ping checks engine connectivity.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.readContext(ctx)
	defer cancel()
	if err := s.engine.Ping(ctx); err != nil {
		return NewEngineError("", err)
	}
	return nil
}

// PageLimit resolves a caller-supplied page size: zero selects the default,
// negative values are rejected and large values are clamped.
func (s *Service) PageLimit(limit int) (int, error) {
	return resolveLimit(limit, s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
}

// ExportCap resolves a caller-supplied export row cap the same way.
func (s *Service) ExportCap(rowCap int) (int, error) {
	return resolveLimit(rowCap, s.cfg.ExportDefaultCap, s.cfg.ExportMaxCap)
}

func resolveLimit(n, def, ceiling int) (int, error) {
	switch {
	case n < 0:
		return 0, &InvalidLimitError{Limit: n}
	case n == 0:
		return def, nil
	case n > ceiling:
		return ceiling, nil
	}
	return n, nil
}

// readContext bounds a read by the configured query timeout.
// Reads stay attached to the caller so navigation cancels them.
func (s *Service) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}

func (s *Service) operationID(ctx context.Context) string {
	if id := GetOperationIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}

// execute runs a buffered read, wrapping driver failures as EngineError.
func (s *Service) execute(ctx context.Context, stmt string) (*QueryResult, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	result, err := s.engine.Execute(ctx, stmt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("query aborted: %w", ctxErr)
		}
		return nil, NewEngineError(stmt, err)
	}
	if result.RowCount == 0 {
		result.RowCount = len(result.Rows)
	}
	return result, nil
}

// tableLocks serialises mutations per table.
type tableLocks struct {
	mu    sync.Mutex
	locks map[TableIdentity]chan struct{}
}

func newTableLocks() *tableLocks {
	return &tableLocks{locks: make(map[TableIdentity]chan struct{})}
}

func (l *tableLocks) get(id TableIdentity) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[id] = ch
	}
	return ch
}

// lock waits for the table's mutation slot. The returned func releases it.
func (l *tableLocks) lock(ctx context.Context, id TableIdentity) (func(), error) {
	ch := l.get(id)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for mutation on %s: %w", id, ctx.Err())
	}
}
