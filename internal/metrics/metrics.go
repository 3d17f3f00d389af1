// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は認証イベントのPrometheusメトリクスを収集する。
// auth.Metricsとmiddleware.AuthRejectionRecorderの両方を満たす。
type Collector struct {
	registrations prometheus.Counter
	loginSuccess  prometheus.Counter
	loginFail     *prometheus.CounterVec
	authRejected  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_registrations_total",
			Help: "登録されたユーザーの合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_login_fail_total",
			Help: "ログイン失敗の理由別合計数",
		}, []string{"reason"}),
		authRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_auth_rejected_total",
			Help: "認証・認可パイプラインで拒否されたリクエストの理由別合計数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.registrations,
		c.loginSuccess,
		c.loginFail,
		c.authRejected,
	)

	return c
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を理由付きで記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordAuthRejected は認証・認可パイプラインでの拒否を理由付きで記録する。
func (c *Collector) RecordAuthRejected(reason string) {
	c.authRejected.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
