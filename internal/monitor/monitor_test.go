package monitor

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compassradar/extension/internal/detection"
	"github.com/compassradar/extension/internal/driver"
)

type fixedSource struct {
	mu sync.Mutex
	st driver.Status
}

func (f *fixedSource) Status() driver.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

type pointLog struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	fail   bool
}

func (p *pointLog) WritePoint(pt *influxdb2_write.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("write failed")
	}
	p.points = append(p.points, pt)
	return nil
}

func (p *pointLog) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollect_WritesStatusFileAndPoint(t *testing.T) {
	src := &fixedSource{st: driver.Status{Territory: 1055, Frames: 4, Stats: detection.Stats{Tracked: 2}}}
	w := &pointLog{}
	path := filepath.Join(t.TempDir(), "status.json")

	s := NewService(Dependencies{Source: src, Writer: w, StatusPath: path, Logger: discard()})
	s.now = func() time.Time { return time.Unix(50, 0) }

	sample := s.Collect()
	assert.Equal(t, uint32(1055), sample.Status.Territory)
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, "compass_status", w.points[0].Name())
	assert.Zero(t, s.Pending())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Sample
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got.Status.Stats.Tracked)
	assert.True(t, got.Time.Equal(time.Unix(50, 0)))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(4), last.Status.Frames)
}

func TestCollect_RetriesRejectedSamples(t *testing.T) {
	w := &pointLog{fail: true}
	s := NewService(Dependencies{Source: &fixedSource{}, Writer: w, Logger: discard()})
	tick := int64(0)
	s.now = func() time.Time { tick++; return time.Unix(tick, 0) }

	s.Collect()
	assert.Equal(t, 1, s.Pending())
	assert.Zero(t, w.Len())

	w.mu.Lock()
	w.fail = false
	w.mu.Unlock()

	s.Collect()
	assert.Zero(t, s.Pending())
	require.Equal(t, 2, w.Len())
	assert.True(t, w.points[0].Time().Equal(time.Unix(1, 0)))
	assert.True(t, w.points[1].Time().Equal(time.Unix(2, 0)))
}

func TestCollect_BacklogIsBounded(t *testing.T) {
	w := &pointLog{fail: true}
	s := NewService(Dependencies{Source: &fixedSource{}, Writer: w, Logger: discard()})

	for range MaxPending + 5 {
		s.Collect()
	}
	assert.Equal(t, MaxPending, s.Pending())
}

func TestCollect_NoWriter(t *testing.T) {
	s := NewService(Dependencies{Source: &fixedSource{}, Logger: discard()})
	_, ok := s.Last()
	assert.False(t, ok)

	s.Collect()
	_, ok = s.Last()
	assert.True(t, ok)
}

func TestStartStop(t *testing.T) {
	w := &pointLog{}
	s := NewService(Dependencies{
		Source:   &fixedSource{},
		Writer:   w,
		Interval: 5 * time.Millisecond,
		Logger:   discard(),
	})

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return w.Len() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	n := w.Len()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, w.Len())

	s.Stop()
}
