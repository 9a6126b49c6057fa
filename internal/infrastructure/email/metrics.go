package email

import (
	"github.com/prometheus/client_golang/prometheus"
)

var emailsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emails_total",
		Help: "The total number of email delivery attempts by kind and status",
	},
	[]string{"kind", "status"},
)

func init() {
	prometheus.MustRegister(emailsTotal)
}
