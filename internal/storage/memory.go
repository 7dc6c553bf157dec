package storage

import (
	"context"
	"sort"
	"sync"

	"eidolon/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	scenarios   map[string]model.ScenarioRecord
	features    map[string]model.FeatureRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.scenarios = make(map[string]model.ScenarioRecord)
	s.features = make(map[string]model.FeatureRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) SaveScenario(_ context.Context, record model.ScenarioRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scenarios[record.Name] = record
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, name string) (model.ScenarioRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.scenarios[name]
	return record, ok, nil
}

func (s *MemoryStore) ListScenarios(_ context.Context) ([]model.ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.ScenarioRecord, 0, len(s.scenarios))
	for _, record := range s.scenarios {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *MemoryStore) SaveFeatures(_ context.Context, record model.FeatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.features[record.RunID] = record
	return nil
}

func (s *MemoryStore) GetFeatures(_ context.Context, runID string) (model.FeatureRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.features[runID]
	return record, ok, nil
}

func sortRunsNewestFirst(runs []model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAtUTC.Equal(runs[j].CreatedAtUTC) {
			return runs[i].CreatedAtUTC.After(runs[j].CreatedAtUTC)
		}
		return runs[i].RunID < runs[j].RunID
	})
}
