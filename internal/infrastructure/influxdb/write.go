package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementTaskRuns   = "task_runs"
	MeasurementDispatcher = "callback_dispatcher"
)

// TaskRun is one finished execution of a task list entry.
type TaskRun struct {
	DeviceUUID string
	Kind       string
	Title      string
	Status     string
	Duration   time.Duration
	EndTime    time.Time
}

// WriteTaskRun records a finished task. The point is timestamped with
// run.EndTime, or now when EndTime is zero.
func (c *Client) WriteTaskRun(run TaskRun) {
	ts := run.EndTime
	if ts.IsZero() {
		ts = time.Now()
	}

	c.WritePointWithTime(
		MeasurementTaskRuns,
		map[string]string{
			"device_uuid": run.DeviceUUID,
			"kind":        run.Kind,
			"status":      run.Status,
		},
		map[string]interface{}{
			"duration_ms": run.Duration.Milliseconds(),
			"title":       run.Title,
		},
		ts,
	)
}

// WriteDispatcherStats records callback queue counters.
func (c *Client) WriteDispatcherStats(published, dropped uint64) {
	c.WritePoint(
		MeasurementDispatcher,
		nil,
		map[string]interface{}{
			"published": int64(published), // #nosec G115 -- counters stay far below MaxInt64
			"dropped":   int64(dropped),   // #nosec G115
		},
	)
}

// WritePoint writes a point with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
// It is a no-op when the client is not connected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
