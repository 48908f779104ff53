package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                 sync.Mutex
	importRuns         map[string]int
	importRowsWritten  map[string]int
	recomputeRuns      int
	recomputeDurations []float64
	standingsQueries   int
	startupTime        float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		importRuns:        make(map[string]int),
		importRowsWritten: make(map[string]int),
	}
}

func (m *Mock) IncImportRuns(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importRuns[kind]++
}

func (m *Mock) AddImportRowsWritten(kind string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importRowsWritten[kind] += rows
}

func (m *Mock) IncRecomputeRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputeRuns++
}

func (m *Mock) ObserveRecomputeDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputeDurations = append(m.recomputeDurations, duration)
}

func (m *Mock) IncStandingsQueries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.standingsQueries++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// ImportRuns returns the recorded batch count for an import kind.
func (m *Mock) ImportRuns(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.importRuns[kind]
}

// ImportRowsWritten returns the recorded written-row count for an import kind.
func (m *Mock) ImportRowsWritten(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.importRowsWritten[kind]
}
