package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
	Actions      *prometheus.CounterVec
	Terminations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameflow_node_visits_total",
			Help: "Total number of node visits.",
		}, []string{"flow", "node"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameflow_transitions_total",
			Help: "Committed transitions by source node and output port.",
		}, []string{"flow", "node", "port"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameflow_actions_total",
			Help: "Applied action behaviors.",
		}, []string{"flow", "behavior"}),
		Terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameflow_terminations_total",
			Help: "Instances that reached an exit node.",
		}, []string{"flow", "exit"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.NodeVisits, m.Transitions, m.Actions, m.Terminations} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, ev *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(ev.Flow, ev.Node).Inc()
		},
		OnNodeLeave: func(_ context.Context, ev *domain.NodeEvent) {
			m.Transitions.WithLabelValues(ev.Flow, ev.Node, ev.Port).Inc()
		},
		OnAction: func(_ context.Context, ev *domain.ActionEvent) {
			m.Actions.WithLabelValues(ev.Flow, ev.Behavior).Inc()
		},
		OnTerminate: func(_ context.Context, ev *domain.NodeEvent) {
			m.Terminations.WithLabelValues(ev.Flow, ev.Node).Inc()
		},
	}
}
