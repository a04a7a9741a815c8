// Package reportbus distributes FrameAnalysis reports to multiple
// downstream consumers (analyzers, loggers, alerting hooks) without
// letting a slow consumer stall the pipeline.
//
// # Core philosophy
//
// "Drop reports, never queue. Latency > completeness." A Pipeline
// itself stays strictly single-threaded and frame-sequential; Bus
// exists for the layer above it, where a SignificantMention may need
// to reach several independent consumers running at their own pace.
// If a consumer's channel is full when a report is published, that
// report is dropped for that consumer rather than queued, so one slow
// analyzer cannot back up the others or the producer.
//
// # Basic usage
//
//	bus := reportbus.New()
//	defer bus.Close()
//
//	analyzerCh := make(chan reportbus.Report, 8)
//	bus.Subscribe("analyzer-1", analyzerCh)
//
//	for {
//	    analysis, err := pipeline.ProcessFrame(frame)
//	    if err != nil {
//	        return err
//	    }
//	    bus.Publish(reportbus.Report{Frame: frameSeq, Analysis: analysis})
//	}
//
// # Concurrency model
//
// Publish runs once per processed frame, always from the pipeline's
// own goroutine; Subscribe/Unsubscribe are comparatively rare, ad hoc
// calls that may arrive from any goroutine as consumers come and go.
// Shaping the bus around that asymmetry means the hot path (Publish,
// Stats) never takes a lock at all: every subscriber registry change
// publishes a freshly built snapshot slice that Publish and Stats read
// atomically, while writeMu only ever serializes the rare registry
// mutations against each other.
package reportbus

import (
	"errors"
	"sync"
	"sync/atomic"

	waldovision "github.com/TheGonzalezDesigns/waldo-vision"
)

var (
	// ErrSubscriberExists is returned by Subscribe for a duplicate id.
	ErrSubscriberExists = errors.New("reportbus: subscriber id already exists")

	// ErrSubscriberNotFound is returned by Unsubscribe for an unknown id.
	ErrSubscriberNotFound = errors.New("reportbus: subscriber id not found")

	// ErrBusClosed is returned by Subscribe/Unsubscribe on a closed bus.
	ErrBusClosed = errors.New("reportbus: bus is closed")
)

// Report pairs one frame's analysis with the frame index it came from.
type Report struct {
	Frame    uint64
	Analysis waldovision.FrameAnalysis
}

// Bus fans a stream of Reports out to any number of subscribers.
type Bus interface {
	// Subscribe registers a channel to receive Reports. Returns
	// ErrSubscriberExists for a duplicate id, ErrBusClosed if Close has
	// already been called.
	Subscribe(id string, ch chan<- Report) error

	// Unsubscribe removes a subscriber by id.
	Unsubscribe(id string) error

	// Publish delivers report to every current subscriber, dropping it
	// for any subscriber whose channel is full. Never blocks. Panics if
	// the bus is closed.
	Publish(report Report)

	// Stats returns a snapshot of delivery/drop counters.
	Stats() BusStats

	// Close stops the bus. Subscribe/Unsubscribe return ErrBusClosed
	// afterward; Publish panics. Idempotent. Does not close subscriber
	// channels — that remains each subscriber's responsibility.
	Close() error
}

// BusStats is a point-in-time snapshot of delivery counters.
type BusStats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

// SubscriberStats tracks one subscriber's delivery/drop counts.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// subscriber bundles a registered channel with its own delivery
// counters. Publish walks a slice of these directly, so there is no
// second map to keep in sync with the registry.
type subscriber struct {
	id      string
	ch      chan<- Report
	sent    atomic.Uint64
	dropped atomic.Uint64
}

type bus struct {
	// writeMu serializes Subscribe/Unsubscribe/Close against each other.
	// Publish and Stats never acquire it.
	writeMu sync.Mutex
	byID    map[string]*subscriber

	// live holds the current subscriber slice. Subscribe/Unsubscribe
	// install a new slice; Publish/Stats load it without locking.
	live atomic.Pointer[[]*subscriber]

	closed atomic.Bool

	totalPublished atomic.Uint64
}

// New creates an empty Bus.
func New() Bus {
	b := &bus{byID: make(map[string]*subscriber)}
	empty := make([]*subscriber, 0)
	b.live.Store(&empty)
	return b
}

func (b *bus) Subscribe(id string, ch chan<- Report) error {
	if ch == nil {
		return errors.New("reportbus: subscriber channel cannot be nil")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.closed.Load() {
		return ErrBusClosed
	}
	if _, exists := b.byID[id]; exists {
		return ErrSubscriberExists
	}

	b.byID[id] = &subscriber{id: id, ch: ch}
	b.storeSnapshot()
	return nil
}

func (b *bus) Unsubscribe(id string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.closed.Load() {
		return ErrBusClosed
	}
	if _, exists := b.byID[id]; !exists {
		return ErrSubscriberNotFound
	}

	delete(b.byID, id)
	b.storeSnapshot()
	return nil
}

// storeSnapshot rebuilds the read-side slice from byID. Callers must
// hold writeMu.
func (b *bus) storeSnapshot() {
	next := make([]*subscriber, 0, len(b.byID))
	for _, s := range b.byID {
		next = append(next, s)
	}
	b.live.Store(&next)
}

func (b *bus) Publish(report Report) {
	if b.closed.Load() {
		panic("reportbus: publish on closed bus")
	}
	b.totalPublished.Add(1)

	for _, s := range *b.live.Load() {
		select {
		case s.ch <- report:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
}

func (b *bus) Stats() BusStats {
	snapshot := *b.live.Load()
	result := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(snapshot)),
	}

	var totalSent, totalDropped uint64
	for _, s := range snapshot {
		sent := s.sent.Load()
		dropped := s.dropped.Load()
		totalSent += sent
		totalDropped += dropped
		result.Subscribers[s.id] = SubscriberStats{Sent: sent, Dropped: dropped}
	}
	result.TotalSent = totalSent
	result.TotalDropped = totalDropped
	return result
}

func (b *bus) Close() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.closed.Load() {
		return nil
	}
	b.closed.Store(true)
	return nil
}
