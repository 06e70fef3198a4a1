// Package metrics містить лічильники Prometheus для подій автентифікації.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набір лічильників на окремому реєстрі.
// Методи безпечні для nil-отримувача, тож metrics можна не передавати в тестах.
type Metrics struct {
	registry        *prometheus.Registry
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	logouts         *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
}

// New створює і реєструє всі лічильники
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by method and result.",
		}, []string{"method", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Access token refresh attempts by result.",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logouts_total",
			Help: "Logout calls by result.",
		}, []string{"result"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_guard_rejections_total",
			Help: "Protected requests rejected by the access guard, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.refreshes,
		m.logouts,
		m.guardRejections,
	)
	return m
}

// Handler віддає метрики у форматі Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLogin(method, result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, result).Inc()
}

func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLogout(result string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveGuardRejection(reason string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(reason).Inc()
}
