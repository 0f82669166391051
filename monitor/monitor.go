// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	StakedPlayers    prometheus.Gauge
	RoundsStarted    prometheus.Counter
	NumbersCalled    prometheus.Counter
	StakesPlaced     prometheus.Counter
	PayoutsTotal     prometheus.Counter
	MessagesReceived prometheus.Counter
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected sessions",
		}),
		StakedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staked_players",
			Help:      "Number of sessions staked into the current round",
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Total number of selection phases opened",
		}),
		NumbersCalled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbers_called_total",
			Help:      "Total number of bingo numbers called",
		}),
		StakesPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stakes_placed_total",
			Help:      "Total number of successful stake debits",
		}),
		PayoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_amount_total",
			Help:      "Total amount credited to winners",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.OnlinePlayers,
		m.StakedPlayers,
		m.RoundsStarted,
		m.NumbersCalled,
		m.StakesPlaced,
		m.PayoutsTotal,
		m.MessagesReceived,
		m.MessageLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("requests", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.requestCount
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetStakedPlayers(count int) {
	m.metrics.StakedPlayers.Set(float64(count))
}

func (m *Monitor) IncRoundsStarted() {
	m.metrics.RoundsStarted.Inc()
}

func (m *Monitor) IncNumbersCalled() {
	m.metrics.NumbersCalled.Inc()
}

func (m *Monitor) IncStakes() {
	m.metrics.StakesPlaced.Inc()
}

func (m *Monitor) AddPayout(amount float64) {
	m.metrics.PayoutsTotal.Add(amount)
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}
