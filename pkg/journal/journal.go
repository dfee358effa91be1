package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"stonks-api/pkg/market"
	"stonks-api/pkg/scheduler"
)

// TickRecord captures one market tick for audit and replay.
type TickRecord struct {
	Timestamp   time.Time         `json:"timestamp"`
	TickNumber  int               `json:"tick_number"`
	DurationMS  int64             `json:"duration_ms"`
	Persisted   bool              `json:"persisted"`
	Updates     []UpdateLine      `json:"updates,omitempty"`
	Failures    map[string]string `json:"failures,omitempty"`
	ActiveEvent map[string]string `json:"active_events,omitempty"`
}

// UpdateLine is the compact form of a market.Update.
type UpdateLine struct {
	Symbol     string  `json:"symbol"`
	OldPrice   float64 `json:"old_price"`
	NewPrice   float64 `json:"new_price"`
	ChangePct  float64 `json:"change_pct"`
	Zone       string  `json:"zone"`
	TrendScore float64 `json:"trend_score"`
	Event      string  `json:"event,omitempty"`
}

// Writer persists tick records to a directory as JSON files (journal style).
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// FromReport converts a scheduler report into a record.
func FromReport(r scheduler.Report) *TickRecord {
	rec := &TickRecord{
		Timestamp:  r.Finished,
		DurationMS: r.Finished.Sub(r.Started).Milliseconds(),
		Persisted:  r.Persisted,
		Failures:   r.Failures,
	}
	for _, u := range r.Updates {
		rec.Updates = append(rec.Updates, lineFor(u))
		if u.Event != "" {
			if rec.ActiveEvent == nil {
				rec.ActiveEvent = make(map[string]string)
			}
			rec.ActiveEvent[u.Symbol] = u.Event
		}
	}
	sort.Slice(rec.Updates, func(i, j int) bool { return rec.Updates[i].Symbol < rec.Updates[j].Symbol })
	return rec
}

func lineFor(u market.Update) UpdateLine {
	return UpdateLine{
		Symbol:     u.Symbol,
		OldPrice:   u.OldPrice,
		NewPrice:   u.NewPrice,
		ChangePct:  u.ChangePct,
		Zone:       string(u.Zone),
		TrendScore: u.TrendScore,
		Event:      u.Event,
	}
}

// OnTick implements scheduler.Observer.
func (w *Writer) OnTick(_ context.Context, r scheduler.Report) error {
	_, err := w.WriteTick(FromReport(r))
	return err
}

// WriteTick writes a tick record to a timestamped JSON file.
func (w *Writer) WriteTick(rec *TickRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.TickNumber = w.seq
	name := fmt.Sprintf("tick_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
