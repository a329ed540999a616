package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_token_refreshes_total",
		Help: "Successful request token rotations.",
	})
)
