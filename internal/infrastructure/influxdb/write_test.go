package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func newTestClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	c := &Client{writeAPI: w}
	c.connected.Store(true)
	return c, w
}

func tagsOf(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fieldsOf(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestWriteTaskRun(t *testing.T) {
	c, w := newTestClient()
	end := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	c.WriteTaskRun(TaskRun{
		DeviceUUID: "dev-1",
		Kind:       "Recruit",
		Title:      "Recruit",
		Status:     "success",
		Duration:   1500 * time.Millisecond,
		EndTime:    end,
	})

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementTaskRuns {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementTaskRuns)
	}
	if !p.Time().Equal(end) {
		t.Errorf("Time() = %v, want %v", p.Time(), end)
	}

	tags := tagsOf(p)
	wantTags := map[string]string{"device_uuid": "dev-1", "kind": "Recruit", "status": "success"}
	for k, v := range wantTags {
		if tags[k] != v {
			t.Errorf("tag %s = %q, want %q", k, tags[k], v)
		}
	}

	fields := fieldsOf(p)
	if fields["duration_ms"] != int64(1500) {
		t.Errorf("duration_ms = %v, want 1500", fields["duration_ms"])
	}
	if fields["title"] != "Recruit" {
		t.Errorf("title = %v, want Recruit", fields["title"])
	}
}

func TestWriteTaskRun_ZeroEndTime(t *testing.T) {
	c, w := newTestClient()
	before := time.Now()

	c.WriteTaskRun(TaskRun{DeviceUUID: "dev-1", Kind: "Fight", Status: "exception"})

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	if w.points[0].Time().Before(before) {
		t.Errorf("Time() = %v, want at or after %v", w.points[0].Time(), before)
	}
}

func TestWriteDispatcherStats(t *testing.T) {
	c, w := newTestClient()

	c.WriteDispatcherStats(42, 3)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	fields := fieldsOf(w.points[0])
	if fields["published"] != int64(42) || fields["dropped"] != int64(3) {
		t.Errorf("fields = %v", fields)
	}
}

func TestWrite_Disconnected(t *testing.T) {
	c, w := newTestClient()
	c.connected.Store(false)

	c.WriteTaskRun(TaskRun{DeviceUUID: "dev-1"})
	c.WritePoint("m", nil, map[string]interface{}{"v": 1})
	c.Flush()

	if len(w.points) != 0 {
		t.Errorf("points = %d, want 0 when disconnected", len(w.points))
	}
	if w.flushes != 0 {
		t.Errorf("flushes = %d, want 0 when disconnected", w.flushes)
	}
}

func TestClose_FlushesAndDisconnects(t *testing.T) {
	c, w := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

type fakeServer struct {
	healthy bool
	err     error
	closed  int
}

func (f *fakeServer) Ping(context.Context) (bool, error) { return f.healthy, f.err }
func (f *fakeServer) Close()                             { f.closed++ }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		srv     *fakeServer
		wantErr bool
	}{
		{"healthy", &fakeServer{healthy: true}, false},
		{"unhealthy", &fakeServer{healthy: false}, true},
		{"ping error", &fakeServer{err: errors.New("refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient()
			c.server = tt.srv
			err := c.HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, w := newTestClient()
	srv := &fakeServer{healthy: true}
	c.server = srv

	c.Close()
	c.Close()

	if srv.closed != 1 || w.flushes != 1 {
		t.Errorf("closed = %d, flushes = %d, want 1 each", srv.closed, w.flushes)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
}

func TestWatchErrors_CountsFailures(t *testing.T) {
	c, _ := newTestClient()
	var seen []error
	c.SetOnError(func(err error) { seen = append(seen, err) })

	errs := make(chan error, 2)
	errs <- errors.New("bucket not found")
	errs <- errors.New("unauthorized")
	close(errs)
	c.watchErrors(errs)

	if got := c.Failures(); got != 2 {
		t.Errorf("Failures() = %d, want 2", got)
	}
	if len(seen) != 2 {
		t.Errorf("callback saw %d errors, want 2", len(seen))
	}
}
