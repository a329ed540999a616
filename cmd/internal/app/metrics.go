package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_http_requests_total",
	Help: "HTTP requests by method and status.",
}, []string{"method", "status"})
