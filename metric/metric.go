// Package metric publishes playback counters with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const sinksLabel = "playback.sinks"

const (
	// OpenCounter counts opened streams.
	OpenCounter = "Opens"
	// OpenErrorCounter counts failed stream opens.
	OpenErrorCounter = "OpenErrors"
	// WriteCounter counts successful writes.
	WriteCounter = "Writes"
	// SampleCounter counts written samples.
	SampleCounter = "Samples"
	// WriteErrorCounter counts failed writes.
	WriteErrorCounter = "WriteErrors"
	// FlushCounter counts requested flushes.
	FlushCounter = "Flushes"
	// PlayedCounter measures duration of written signal.
	PlayedCounter = "Played"
	// LatencyCounter measures time spent in the latest write.
	LatencyCounter = "Latency"
)

var (
	sinks = registry{
		m: make(map[string]*Sink),
	}

	counters = []string{
		OpenCounter,
		OpenErrorCounter,
		WriteCounter,
		SampleCounter,
		WriteErrorCounter,
		FlushCounter,
		PlayedCounter,
		LatencyCounter,
	}
)

// Sink holds counters of a single playback sink. Nil sink is valid and
// discards all measurements.
type Sink struct {
	name        string
	opens       *expvar.Int
	openErrors  *expvar.Int
	writes      *expvar.Int
	samples     *expvar.Int
	writeErrors *expvar.Int
	flushes     *expvar.Int
	played      *duration
	latency     *duration
}

// Get returns counters published under provided name. Counters are
// created on first call and shared by all callers with the same name.
func Get(name string) *Sink {
	return sinks.get(name)
}

// Values returns string values of all counters of the named sink. Nil
// is returned for unknown names.
func Values(name string) map[string]string {
	sinks.Lock()
	_, ok := sinks.m[name]
	sinks.Unlock()
	if !ok {
		return nil
	}
	m := make(map[string]string)
	for _, counter := range counters {
		if v := expvar.Get(key(name, counter)); v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// Open measures stream open attempt.
func (s *Sink) Open(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.openErrors.Add(1)
		return
	}
	s.opens.Add(1)
}

// Write measures a single write of n samples at provided sample rate.
func (s *Sink) Write(sampleRate, n int, elapsed time.Duration, err error) {
	if s == nil {
		return
	}
	s.latency.set(elapsed)
	if err != nil {
		s.writeErrors.Add(1)
		return
	}
	s.writes.Add(1)
	s.samples.Add(int64(n))
	if sampleRate > 0 {
		s.played.add(time.Duration(n) * time.Second / time.Duration(sampleRate))
	}
}

// Flush measures requested flush.
func (s *Sink) Flush() {
	if s == nil {
		return
	}
	s.flushes.Add(1)
}

type registry struct {
	sync.Mutex
	m map[string]*Sink
}

func (r *registry) get(name string) *Sink {
	r.Lock()
	defer r.Unlock()
	if s, ok := r.m[name]; ok {
		return s
	}
	s := newSink(name)
	r.m[name] = s
	return s
}

func newSink(name string) *Sink {
	s := Sink{
		name:        name,
		opens:       expvar.NewInt(key(name, OpenCounter)),
		openErrors:  expvar.NewInt(key(name, OpenErrorCounter)),
		writes:      expvar.NewInt(key(name, WriteCounter)),
		samples:     expvar.NewInt(key(name, SampleCounter)),
		writeErrors: expvar.NewInt(key(name, WriteErrorCounter)),
		flushes:     expvar.NewInt(key(name, FlushCounter)),
		played:      &duration{},
		latency:     &duration{},
	}
	expvar.Publish(key(name, PlayedCounter), s.played)
	expvar.Publish(key(name, LatencyCounter), s.latency)
	return &s
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", sinksLabel, name, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
