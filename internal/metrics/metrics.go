// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"chograce/internal/race"
	"chograce/internal/replica"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chograce"

type Metrics struct {
	Registry      *prometheus.Registry
	RoomsActive   prometheus.Gauge
	PeersOnline   prometheus.Gauge
	RacesStarted  prometheus.Counter
	RacesFinished *prometheus.CounterVec
	RaceDuration  prometheus.Histogram
	Moves         *prometheus.CounterVec
	Commands      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently held in memory.",
		}),
		PeersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_connected",
			Help:      "Open WebSocket connections across all rooms.",
		}),
		RacesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_started_total",
			Help:      "Races that moved into racing.",
		}),
		RacesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_finished_total",
			Help:      "Races that finished, by reason.",
		}, []string{"reason"}),
		RaceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "race_duration_seconds",
			Help:      "Time from race start to finish.",
			Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
		}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Move attempts, by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Sequenced commands, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RoomsActive,
		m.PeersOnline,
		m.RacesStarted,
		m.RacesFinished,
		m.RaceDuration,
		m.Moves,
		m.Commands,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCommand(cmd replica.Command) {
	m.Commands.WithLabelValues(string(cmd.Kind)).Inc()
}

func (m *Metrics) ObserveMove(success bool) {
	if success {
		m.Moves.WithLabelValues("hit").Inc()
		return
	}
	m.Moves.WithLabelValues("miss").Inc()
}

func (m *Metrics) ObserveThrottled() {
	m.Moves.WithLabelValues("throttled").Inc()
}

// ObserveFinish records a finished race. The duration is measured up to the
// last finisher, or to now when nobody finished.
func (m *Metrics) ObserveFinish(s *race.State, reason race.Reason) {
	m.RacesFinished.WithLabelValues(string(reason)).Inc()
	if s == nil || s.StartTime == nil {
		return
	}
	end := time.Now()
	var last time.Duration
	for _, d := range race.CompletionTimes(s) {
		last = max(last, d)
	}
	if last > 0 {
		end = s.StartTime.Add(last)
	}
	m.RaceDuration.Observe(end.Sub(*s.StartTime).Seconds())
}
