// Package influxdb records task run history and dispatcher counters in
// InfluxDB.
//
// It wraps influxdb-client-go v2 with a non-blocking, batched write API.
// Batch size and flush interval come from the influxdb section of the
// configuration.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without metrics
//	}
//	defer client.Close()
//
//	client.WriteTaskRun(influxdb.TaskRun{DeviceUUID: id, Kind: "Fight", Status: "success"})
//
// Write errors are delivered asynchronously through SetOnError. Writes on a
// disconnected or nil client are dropped.
package influxdb
