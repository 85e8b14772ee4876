package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the coordinator's prometheus collectors.
type Metrics struct {
	MatchesStarted  *prometheus.CounterVec
	MatchesFinished *prometheus.CounterVec
	Turns           *prometheus.CounterVec
	AgentFailures   *prometheus.CounterVec
	DecisionSeconds *prometheus.HistogramVec
	Running         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MatchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameplay",
			Name:      "matches_started_total",
			Help:      "Matches created, by game.",
		}, []string{"game"}),
		MatchesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameplay",
			Name:      "matches_finished_total",
			Help:      "Matches that ended, by game and result.",
		}, []string{"game", "result"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameplay",
			Name:      "turns_total",
			Help:      "Actions applied, by game.",
		}, []string{"game"}),
		AgentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameplay",
			Name:      "agent_failures_total",
			Help:      "Turns an agent failed to take, by game and reason.",
		}, []string{"game", "reason"}),
		DecisionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gameplay",
			Name:      "agent_decision_seconds",
			Help:      "Time agents take to respond, by game.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"game"}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gameplay",
			Name:      "matches_running",
			Help:      "Matches currently being played.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.MatchesStarted, m.MatchesFinished, m.Turns, m.AgentFailures, m.DecisionSeconds, m.Running)
	}
	return m
}
