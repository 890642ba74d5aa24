package services

import "github.com/prometheus/client_golang/prometheus"

var statusRollbackCounter prometheus.Counter

func init() {
	statusRollbackCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nihms_status_rollbacks_total",
			Help: "Total number of status rollbacks because the catalog was ahead of the NIHMS source.",
		},
	)
	prometheus.MustRegister(statusRollbackCounter)
}
