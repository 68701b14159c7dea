package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	ReadingsReceived    atomic.Int64
	InferenceFailures   atomic.Int64
	DispatchDrops       atomic.Int64
	StateChannelDrops   atomic.Int64
	AlertChannelDrops   atomic.Int64
	BroadcastsDelivered atomic.Int64
	SubscribersEvicted  atomic.Int64
	SnapshotFailures    atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "crashnet_readings_received_total %d\n", ReadingsReceived.Load())
	fmt.Fprintf(w, "crashnet_inference_failures_total %d\n", InferenceFailures.Load())
	fmt.Fprintf(w, "crashnet_dispatch_drops_total %d\n", DispatchDrops.Load())
	fmt.Fprintf(w, "crashnet_state_channel_drops_total %d\n", StateChannelDrops.Load())
	fmt.Fprintf(w, "crashnet_alert_channel_drops_total %d\n", AlertChannelDrops.Load())
	fmt.Fprintf(w, "crashnet_broadcasts_delivered_total %d\n", BroadcastsDelivered.Load())
	fmt.Fprintf(w, "crashnet_subscribers_evicted_total %d\n", SubscribersEvicted.Load())
	fmt.Fprintf(w, "crashnet_snapshot_failures_total %d\n", SnapshotFailures.Load())
}
