package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks one long-running activity, such as a frame replay,
// for display on the monitoring page. The JSON field names are part of the
// /api/progress response format.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func newProgressBar(id, name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        id,
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// AddInProgress marks amount more units as being worked on.
func (b *ProgressBar) AddInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// AddFinished marks amount more units as done without touching the
// in-progress count.
func (b *ProgressBar) AddFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// CompleteInProgress moves amount units from in progress to finished.
func (b *ProgressBar) CompleteInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}
