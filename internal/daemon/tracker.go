package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"vdflow/internal/scanner"
)

// CycleRecord 사이클 결과 요약
type CycleRecord struct {
	StartedAt time.Time          `json:"started_at"`
	Scanned   int                `json:"scanned"`
	Analyzed  int                `json:"analyzed"`
	Failed    int                `json:"failed"`
	WithZones int                `json:"with_zones"`
	NewZones  []string           `json:"new_zones"` // tickers whose latest zone start changed since the last cycle
	TopScores map[string]float64 `json:"top_scores"`
}

// CycleTracker remembers the latest zone per ticker across cycles and
// appends each cycle to a per-day JSON file
type CycleTracker struct {
	dataDir string

	mu         sync.Mutex
	lastZone   map[string]time.Time // ticker -> start of its strongest zone
	firstCycle bool
}

// NewCycleTracker 생성자. dataDir 비어 있으면 파일 저장 생략
func NewCycleTracker(dataDir string) *CycleTracker {
	return &CycleTracker{
		dataDir:    dataDir,
		lastZone:   make(map[string]time.Time),
		firstCycle: true,
	}
}

// Record summarises res. On the first cycle nothing counts as new.
func (t *CycleTracker) Record(started time.Time, res *scanner.ScanResult) CycleRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := CycleRecord{
		StartedAt: started,
		Scanned:   res.TotalScanned,
		Analyzed:  res.Analyzed,
		Failed:    len(res.Failed),
		NewZones:  []string{},
		TopScores: make(map[string]float64),
	}

	for _, s := range res.Snapshots {
		if len(s.Result.Zones) == 0 {
			delete(t.lastZone, s.Ticker)
			continue
		}
		top := s.Result.Zones[0]
		rec.WithZones++
		rec.TopScores[s.Ticker] = top.Score

		prev, seen := t.lastZone[s.Ticker]
		if !t.firstCycle && (!seen || !prev.Equal(top.StartDate)) {
			rec.NewZones = append(rec.NewZones, s.Ticker)
		}
		t.lastZone[s.Ticker] = top.StartDate
	}
	sort.Strings(rec.NewZones)
	t.firstCycle = false
	return rec
}

// Save appends rec to watch_YYYY-MM-DD.json
func (t *CycleTracker) Save(rec CycleRecord) error {
	if t.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(t.dataDir, fmt.Sprintf("watch_%s.json", rec.StartedAt.Format("2006-01-02")))
	var records []CycleRecord
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads the cycle records for one day
func (t *CycleTracker) Load(day time.Time) ([]CycleRecord, error) {
	path := filepath.Join(t.dataDir, fmt.Sprintf("watch_%s.json", day.Format("2006-01-02")))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []CycleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
