package analyzer

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager holds the analyzer registry and runs analyzers over a shared
// context.
type Manager struct {
	mu        sync.RWMutex
	analyzers map[Category]Analyzer
	logger    *zap.Logger
}

// NewManager creates a manager with every built-in analyzer registered.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		analyzers: make(map[Category]Analyzer),
		logger:    logger.Named("analyzer"),
	}

	m.Register(NewMetaTagsAnalyzer())
	m.Register(NewPageSpeedAnalyzer())
	m.Register(NewKeywordDensityAnalyzer())
	m.Register(NewMobileAnalyzer())
	m.Register(NewSitemapRobotsAnalyzer())
	m.Register(NewTechnicalSEOAnalyzer())
	m.Register(NewSchemaAnalyzer())
	m.Register(NewAltTextAnalyzer())
	m.Register(NewCanonicalAnalyzer())
	m.Register(NewBrokenLinksAnalyzer())
	m.Register(NewKeywordResearchAnalyzer())
	m.Register(NewBacklinksAnalyzer())
	m.Register(NewCompetitorsAnalyzer())
	m.Register(NewRankTrackingAnalyzer())

	return m
}

// Register adds or replaces the analyzer for its category.
func (m *Manager) Register(a Analyzer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzers[a.Category()] = a
}

// Get returns the analyzer registered for c.
func (m *Manager) Get(c Category) (Analyzer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.analyzers[c]
	return a, ok
}

// Run executes the analyzers of categories concurrently and returns their
// results in report order. An empty list runs every category. An analyzer
// that fails or panics yields a FailedResult and does not affect the others.
func (m *Manager) Run(actx *AnalysisContext, categories []Category) []*Result {
	if len(categories) == 0 {
		categories = Categories()
	}
	categories = sortCategories(categories)

	results := make([]*Result, len(categories))
	var g errgroup.Group
	for i, c := range categories {
		g.Go(func() error {
			results[i] = m.RunOne(actx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunOne executes a single analyzer with panic recovery.
func (m *Manager) RunOne(actx *AnalysisContext, c Category) (result *Result) {
	a, ok := m.Get(c)
	if !ok {
		return FailedResult(c, ErrUnknownCategory.Error())
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Analyzer panicked",
				zap.String("category", string(c)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result = FailedResult(c, fmt.Sprintf("panic: %v", r))
		}
	}()

	res, err := a.Analyze(actx)
	if err == nil && res == nil {
		err = fmt.Errorf("analyzer returned no result")
	}
	if err != nil {
		m.logger.Warn("Analyzer failed", zap.String("category", string(c)), zap.Error(err))
		return FailedResult(c, err.Error())
	}

	if !c.IsMarket() && actx.Document != nil && actx.Document.IsFallback() {
		res.Confidence = ConfidenceLow
	}

	m.logger.Debug("Analyzer finished",
		zap.String("category", string(c)),
		zap.Int("score", res.Score),
		zap.Int("issues", len(res.Issues)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res
}

// sortCategories returns a copy of categories in report order.
func sortCategories(categories []Category) []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index() < out[j].Index()
	})
	return out
}
