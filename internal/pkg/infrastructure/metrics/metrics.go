package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "inventory",
	Name:      "store_operations_total",
	Help:      "Number of mutating store operations by entity, action and result.",
}, []string{"entity", "action", "result"})

var PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "inventory",
	Name:      "persistence_failures_total",
	Help:      "Number of commits that could not be written to the persistence backend.",
})

var LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "inventory",
	Name:      "login_attempts_total",
	Help:      "Number of login attempts by result.",
}, []string{"result"})

func Handler() http.Handler {
	return promhttp.Handler()
}
