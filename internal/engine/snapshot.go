// Package engine implements the decision-and-rendering core: resolving
// a user message against the state graph and rendering the reply
// template for the state it lands on. All configuration is read from
// an immutable Snapshot that a Cache refreshes wholesale on a TTL.
package engine

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
)

const DefaultCacheTTL = 300 * time.Second

// snapshot sources reported in stats
const (
	SourceConfigStore = "config_store"
	SourceEmergency   = "emergency"
)

// CompiledPattern is a keyword pattern with its regex (if any)
// compiled. A pattern whose regex fails to compile is dropped at
// snapshot build, never at match time.
type CompiledPattern struct {
	domain.KeywordPattern
	re *regexp.Regexp
}

// CompiledEvaluator is an evaluator spec with its regex precompiled.
type CompiledEvaluator struct {
	domain.EvaluatorSpec
	re *regexp.Regexp
}

// Snapshot is the immutable view of all flow configuration used during
// one cache epoch. Concurrent readers share it; refresh builds a new
// one and swaps a single pointer.
type Snapshot struct {
	MLMappings   map[string]domain.ConditionMapping
	Patterns     []CompiledPattern
	Evaluators   []CompiledEvaluator
	States       map[string]domain.StateDefinition
	Equivalences domain.EquivalenceTable
	SystemVars   map[string]string
	Aliases      map[string]string
	Source       string
	LoadedAt     time.Time
}

func (s *Snapshot) State(name string) (domain.StateDefinition, bool) {
	def, ok := s.States[name]
	return def, ok
}

// buildSnapshot compiles a loaded FlowConfig into a Snapshot. Invalid
// records are dropped with a log line; dangling state references are
// reported as configuration errors but do not abort the build.
func buildSnapshot(cfg *domain.FlowConfig, source string, validate *validator.Validate, logger *zap.Logger) *Snapshot {
	snap := &Snapshot{
		MLMappings:   make(map[string]domain.ConditionMapping, len(cfg.MLMappings)),
		States:       make(map[string]domain.StateDefinition, len(cfg.States)),
		Equivalences: cfg.Equivalences,
		SystemVars:   cfg.SystemVariables,
		Aliases:      cfg.VariableAliases,
		Source:       source,
		LoadedAt:     time.Now(),
	}
	if snap.Equivalences == nil {
		snap.Equivalences = domain.EquivalenceTable{}
	}

	for _, m := range cfg.MLMappings {
		if err := validate.Struct(m); err != nil {
			logger.Warn("dropping invalid ML mapping", zap.String("label", m.Label), zap.Error(err))
			continue
		}
		snap.MLMappings[m.Label] = m
	}

	for _, p := range cfg.KeywordPatterns {
		if err := validate.Struct(p); err != nil {
			logger.Warn("dropping invalid keyword pattern", zap.String("pattern", p.Pattern), zap.Error(err))
			continue
		}
		cp := CompiledPattern{KeywordPattern: p}
		if cp.Type == "" {
			cp.Type = domain.PatternContains
		}
		if cp.Type == domain.PatternRegex {
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				logger.Warn("dropping pattern with invalid regex",
					zap.String("pattern", p.Pattern), zap.Error(err))
				continue
			}
			cp.re = re
		}
		snap.Patterns = append(snap.Patterns, cp)
	}
	// Descending static confidence; equal confidences break toward the
	// longer pattern, then configured order.
	sort.SliceStable(snap.Patterns, func(i, j int) bool {
		a, b := snap.Patterns[i], snap.Patterns[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return len(a.Pattern) > len(b.Pattern)
	})

	for _, ev := range cfg.Evaluators {
		if err := validate.Struct(ev); err != nil {
			logger.Warn("dropping invalid evaluator", zap.String("name", ev.Name), zap.Error(err))
			continue
		}
		ce := CompiledEvaluator{EvaluatorSpec: ev}
		if ev.Kind == domain.EvaluatorRegex {
			if ev.Regex == nil {
				logger.Warn("dropping regex evaluator without config", zap.String("name", ev.Name))
				continue
			}
			re, err := regexp.Compile(ev.Regex.Pattern)
			if err != nil {
				logger.Warn("dropping evaluator with invalid regex",
					zap.String("name", ev.Name), zap.Error(err))
				continue
			}
			ce.re = re
		}
		snap.Evaluators = append(snap.Evaluators, ce)
	}

	for _, err := range cfg.Validate() {
		logger.Error("state graph configuration error", zap.Error(err))
	}
	for _, s := range cfg.States {
		if err := validate.Struct(s); err != nil {
			logger.Warn("dropping invalid state", zap.String("state", s.Name), zap.Error(err))
			continue
		}
		snap.States[s.Name] = s
	}

	return snap
}

// Cache holds the current Snapshot and refreshes it from the flow
// store when the TTL elapses. Single writer, any number of readers;
// readers never block on a refresh in progress, they keep serving the
// last good snapshot.
type Cache struct {
	store    domain.FlowStore
	ttl      time.Duration
	logger   *zap.Logger
	validate *validator.Validate

	current       atomic.Pointer[Snapshot]
	emergency     *Snapshot
	emergencyOnce sync.Once
	refreshMu     sync.Mutex
}

func NewCache(store domain.FlowStore, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store:    store,
		ttl:      ttl,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Current returns the snapshot to serve this request from. A stale
// snapshot triggers a refresh attempt, but only one goroutine
// refreshes at a time; everyone else keeps the stale copy. With no
// snapshot ever loaded the embedded emergency flow serves instead.
func (c *Cache) Current(ctx context.Context) *Snapshot {
	snap := c.current.Load()
	if snap != nil && time.Since(snap.LoadedAt) < c.ttl {
		return snap
	}

	if c.refreshMu.TryLock() {
		defer c.refreshMu.Unlock()
		// Re-check after acquiring the lock.
		if snap = c.current.Load(); snap == nil || time.Since(snap.LoadedAt) >= c.ttl {
			if err := c.refreshLocked(ctx); err != nil {
				c.logger.Warn("config refresh failed, serving last good snapshot", zap.Error(err))
			}
		}
	}

	if snap = c.current.Load(); snap != nil {
		return snap
	}
	return c.emergencySnapshot()
}

// Refresh forces a reload regardless of snapshot age.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	start := time.Now()
	cfg, err := c.store.LoadFlowConfig(ctx)
	if err != nil {
		return err
	}
	snap := buildSnapshot(cfg, SourceConfigStore, c.validate, c.logger)
	c.current.Store(snap)
	c.logger.Info("flow configuration loaded",
		zap.Int("ml_mappings", len(snap.MLMappings)),
		zap.Int("keyword_patterns", len(snap.Patterns)),
		zap.Int("evaluators", len(snap.Evaluators)),
		zap.Int("states", len(snap.States)),
		zap.Duration("load_time", time.Since(start)))
	return nil
}

func (c *Cache) emergencySnapshot() *Snapshot {
	c.emergencyOnce.Do(func() {
		cfg, err := emergencyConfig()
		if err != nil {
			// The embedded flow is part of the binary; failing to
			// parse it is unrecoverable.
			panic(err)
		}
		c.logger.Warn("no configuration snapshot available, using embedded emergency flow")
		c.emergency = buildSnapshot(cfg, SourceEmergency, c.validate, c.logger)
	})
	return c.emergency
}

// CacheStats describes the snapshot currently being served.
type CacheStats struct {
	Source          string        `json:"source"`
	Age             time.Duration `json:"-"`
	AgeSeconds      int           `json:"age_seconds"`
	MLMappings      int           `json:"ml_mappings"`
	KeywordPatterns int           `json:"keyword_patterns"`
	Evaluators      int           `json:"evaluators"`
	States          int           `json:"states"`
}

func (c *Cache) Stats() CacheStats {
	snap := c.current.Load()
	if snap == nil {
		snap = c.emergencySnapshot()
	}
	age := time.Since(snap.LoadedAt)
	return CacheStats{
		Source:          snap.Source,
		Age:             age,
		AgeSeconds:      int(age.Seconds()),
		MLMappings:      len(snap.MLMappings),
		KeywordPatterns: len(snap.Patterns),
		Evaluators:      len(snap.Evaluators),
		States:          len(snap.States),
	}
}
