package mediameta

import (
	"sync"
	"time"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
)

// Observer receives the notifications of a source. Calls may come from any goroutine.
type Observer interface {
	// ContainerChanged reports that the children of objectID changed.
	ContainerChanged(objectID string)
	// MetadataChanged reports that SetMetadata modified objectID.
	MetadataChanged(objectID string)
	// Updating reports indexing progress in percent (100 when idle), processed and remaining
	// items, and the estimated remaining seconds (-1 when unknown).
	Updating(progress, processed, remaining, remainingTime int)
}

func (s *Source) handleChange(event indexer.ChangeEvent) {
	if s.observer == nil {
		return
	}

	var category Category
	switch event.Service {
	case data.ServiceMusic:
		category = CategoryMusic
	case data.ServiceVideo:
		category = CategoryVideos
	case data.ServicePlaylist:
		category = CategoryPlaylists
	default:
		return
	}

	s.observer.ContainerChanged(s.ObjectID(ObjectID{Category: category}))
}

// progress remembers the last reported values so unchanged updates are suppressed.
type progress struct {
	mu            sync.Mutex
	percent       int
	processed     int
	remaining     int
	remainingTime int
}

// IndexProgress reports the state of a running or finished indexing pass to the observer. done
// and remaining count items, elapsed is the time spent so far.
func (s *Source) IndexProgress(indexing bool, done, remaining int, elapsed time.Duration) {
	percent, remainingTime := 100, 0
	if indexing {
		percent, remainingTime = computeProgress(done, remaining, elapsed)
	}

	p := &s.progress
	p.mu.Lock()
	changed := p.percent != percent || p.processed != done || p.remaining != remaining || p.remainingTime != remainingTime
	if changed {
		p.percent, p.processed, p.remaining, p.remainingTime = percent, done, remaining, remainingTime
	}
	p.mu.Unlock()

	if changed && s.observer != nil {
		s.observer.Updating(percent, done, remaining, remainingTime)
	}
}

// computeProgress returns the completion percentage, kept below 100 while indexing, and the
// estimated remaining seconds.
func computeProgress(done, remaining int, elapsed time.Duration) (int, int) {
	percent := 0
	if total := done + remaining; total > 0 {
		percent = min(max(100*done/total, 0), 99)
	}

	remainingTime := -1
	if done > 0 {
		remainingTime = int(int64(remaining) * int64(elapsed.Seconds()) / int64(done))
	}
	return percent, remainingTime
}
