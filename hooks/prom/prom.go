// Package prom counts handle lifecycle events with Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

// Hooks implements shuffleio.Hooks. Labels are kept to the event outcome and
// object class; job and stage ids are unbounded and stay out of labels.
type Hooks struct {
	created  *prometheus.CounterVec
	raceLost prometheus.Counter
	opened   prometheus.Counter
	failures *prometheus.CounterVec
}

var _ shuffleio.Hooks = (*Hooks)(nil)

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	if namespace == "" {
		namespace = "shuffleio"
	}
	h := &Hooks{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_created_total",
			Help:      "Objects created and registered in the handle cache.",
		}, []string{"class"}),
		raceLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "create_races_lost_total",
			Help:      "Redundant creates discarded after losing the insert race.",
		}),
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_opened_total",
			Help:      "Objects opened by the handle cache.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_failures_total",
			Help:      "Store failures by operation.",
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{h.created, h.raceLost, h.opened, h.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) ObjectCreated(_ shuffleio.Key, id store.ObjectID) {
	h.created.WithLabelValues(id.Class().String()).Inc()
}
func (h *Hooks) CreateRaceLost(shuffleio.Key, store.ObjectID) { h.raceLost.Inc() }
func (h *Hooks) ObjectOpened(shuffleio.Key, store.ObjectID)   { h.opened.Inc() }
func (h *Hooks) CreateFailed(shuffleio.Key, store.ObjectID, error) {
	h.failures.WithLabelValues("create").Inc()
}
func (h *Hooks) OpenFailed(shuffleio.Key, store.ObjectID, error) {
	h.failures.WithLabelValues("open").Inc()
}
func (h *Hooks) CloseFailed(shuffleio.Key, store.ObjectID, error) {
	h.failures.WithLabelValues("close").Inc()
}
