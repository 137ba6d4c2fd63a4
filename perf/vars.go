package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency     = metric.NewHistogram("1m1s")
	DiscoveryLatency    = metric.NewHistogram("1m1s")
	SentPacketPerSecond = metric.NewCounter("10s1s")
	RecvPacketPerSecond = metric.NewCounter("10s1s")
	SentBytesPerSecond  = metric.NewCounter("10s1s")
	RecvBytesPerSecond  = metric.NewCounter("10s1s")
	TrappedPerSecond    = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("ara:SentPacket/s", SentPacketPerSecond)
	expvar.Publish("ara:RecvPacket/s", RecvPacketPerSecond)
	expvar.Publish("ara:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("ara:RecvBytes/s", RecvBytesPerSecond)
	expvar.Publish("ara:Trapped/s", TrappedPerSecond)
	expvar.Publish("ara:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("ara:DiscoveryLatency (ms)", DiscoveryLatency)
}
