// Package metrics exposes Prometheus collectors for the chat daemon.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/window"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storechat_messages_total",
		Help: "Messages appended to rooms, by sender",
	}, []string{"sender"})
	WindowEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storechat_window_evictions_total",
		Help: "Floating windows closed to make room for a new one",
	})
	OpenWindows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storechat_open_windows",
		Help: "Floating chat windows currently open",
	})
	MainPageActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storechat_main_page_active",
		Help: "1 while the full-page chat view is showing",
	})
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storechat_ws_connections",
		Help: "Current number of active websocket connections",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storechat_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storechat_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(MessagesTotal, WindowEvictionsTotal, OpenWindows, MainPageActive,
		WsConnections, HTTPRequestsTotal, HTTPRequestDuration)
}

// GinMiddleware records request counts and latency.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HTTPRequestsTotal.With(labels).Inc()
		HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Watch updates the chat collectors from bus events until ctx is done.
func Watch(ctx context.Context, b *bus.Bus) {
	ch, unsub := b.Subscribe("", 256)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				Observe(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Observe applies a single event to the collectors.
func Observe(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case chat.MessageAppended:
		if p.Seeded {
			return
		}
		MessagesTotal.WithLabelValues(string(p.Message.Sender)).Inc()
	case window.LayoutChanged:
		if p.Evicted != "" {
			WindowEvictionsTotal.Inc()
		}
		OpenWindows.Set(float64(len(p.Layout.Entries)))
		if p.Layout.MainPage {
			MainPageActive.Set(1)
		} else {
			MainPageActive.Set(0)
		}
	}
}
