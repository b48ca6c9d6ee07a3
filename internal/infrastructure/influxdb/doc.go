// Package influxdb provides InfluxDB connectivity for CueGrid Core.
//
// It wraps the official influxdb-client-go v2 library with CueGrid-specific
// patterns for connection management, point writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Playback step telemetry (which sequence, which step, when)
//   - Scene on/off history
//   - Device connection state transitions
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "cuegrid",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WritePoint("scene_state",
//	    map[string]string{"scene": "3,1"},
//	    map[string]interface{}{"active": 1.0})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
