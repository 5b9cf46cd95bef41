package handler

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics counts account events by outcome.
type AuthMetrics struct {
	events *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seochat",
			Name:      "auth_events_total",
			Help:      "Registrations, logins and logouts by outcome.",
		}, []string{"event", "outcome"}),
	}
	reg.MustRegister(m.events)
	return m
}

func (m *AuthMetrics) observe(event string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.events.WithLabelValues(event, outcome).Inc()
}
