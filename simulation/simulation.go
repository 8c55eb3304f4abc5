// Package simulation replays memory traces through a simulated cache.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// A Source provides the requests to replay. Next returns io.EOF after the
// last request.
type Source interface {
	Next() (trace.Request, error)
}

type sizedSource interface {
	Source
	Len() int
}

type sliceSource struct {
	reqs []trace.Request
	next int
}

// FromRequests creates a Source that replays the given requests.
func FromRequests(reqs []trace.Request) Source {
	return &sliceSource{reqs: reqs}
}

func (s *sliceSource) Next() (trace.Request, error) {
	if s.next >= len(s.reqs) {
		return trace.Request{}, io.EOF
	}

	req := s.reqs[s.next]
	s.next++

	return req, nil
}

func (s *sliceSource) Len() int {
	return len(s.reqs)
}

// A Simulation owns one cache and serializes every access to it, so that
// the monitor can read the cache state while a trace is replayed.
type Simulation struct {
	id string

	lock   sync.Mutex
	engine *cache.Engine

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	transfers    *hooking.TagCountTracer
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Name returns the name of the simulated cache.
func (s *Simulation) Name() string {
	return s.engine.Name()
}

// Config returns the configuration of the simulated cache.
func (s *Simulation) Config() cache.Config {
	return s.engine.Config()
}

// Stats returns a snapshot of the access counters.
func (s *Simulation) Stats() cache.Statistics {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.Stats()
}

// Performance evaluates the performance model on the current counters.
func (s *Simulation) Performance() cache.Performance {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.Performance()
}

// NumSets returns the number of sets of the simulated cache.
func (s *Simulation) NumSets() int {
	return s.engine.NumSets()
}

// Set returns a copy of the ways of a set.
func (s *Simulation) Set(setID int) []cache.BlockState {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.Set(setID)
}

// TransferCounts returns how many transfers of each kind were issued to the
// next level.
func (s *Simulation) TransferCounts() map[string]uint64 {
	return s.transfers.Counts()
}

// GetDataRecorder returns the data recorder used in the simulation. It is
// nil if recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// AcceptHook registers a hook on the simulated cache.
func (s *Simulation) AcceptHook(hook hooking.Hook) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.engine.AcceptHook(hook)
}

// Access performs one request on the cache.
func (s *Simulation) Access(req trace.Request) (cache.Outcome, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.Access(req.Kind, uint64(req.Address))
}

// Run replays all the requests from the source. The context is checked
// between requests; a request that has started always completes. Run
// returns the number of requests performed.
func (s *Simulation) Run(ctx context.Context, src Source) (uint64, error) {
	bar := s.createProgressBar(src)
	if bar != nil {
		defer s.monitor.CompleteProgressBar(bar)
	}

	var done uint64

	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		req, err := src.Next()
		if errors.Is(err, io.EOF) {
			return done, nil
		}

		if err != nil {
			return done, fmt.Errorf("reading request %d: %w", done+1, err)
		}

		if bar != nil {
			bar.IncrementInProgress(1)
		}

		_, err = s.Access(req)
		if err != nil {
			return done, fmt.Errorf("line %d: %w", req.Line, err)
		}

		done++

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}
	}
}

func (s *Simulation) createProgressBar(src Source) *monitoring.ProgressBar {
	if s.monitor == nil {
		return nil
	}

	var total uint64
	if sized, ok := src.(sizedSource); ok {
		total = uint64(sized.Len())
	}

	return s.monitor.CreateProgressBar(s.Name()+" trace replay", total)
}

// Terminate flushes the recorded data and closes the database.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	return s.dataRecorder.Close()
}
