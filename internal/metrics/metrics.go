// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// ログイン結果、招待トークン検証、シフト重複解決、HTTPレイテンシを記録する。
type Collector struct {
	loginSuccess     prometheus.Counter
	loginFail        *prometheus.CounterVec
	invitationChecks *prometheus.CounterVec
	shiftConflicts   prometheus.Counter
	shiftResolutions *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shiftman_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftman_login_fail_total",
			Help: "理由コード別のログイン失敗数",
		}, []string{"reason"}),
		invitationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftman_invitation_check_total",
			Help: "検証結果別の招待トークン検証数",
		}, []string{"result"}),
		shiftConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shiftman_shift_conflict_total",
			Help: "検出されたシフト重複の合計数",
		}),
		shiftResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftman_shift_conflict_resolved_total",
			Help: "解決方法別のシフト重複解決数",
		}, []string{"resolution"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftman_http_request_duration_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.invitationChecks,
		c.shiftConflicts,
		c.shiftResolutions,
		c.httpLatency,
	)

	return c
}

// LoginSucceeded はログイン成功を記録する。
func (c *Collector) LoginSucceeded() {
	c.loginSuccess.Inc()
}

// LoginFailed は理由コード付きでログイン失敗を記録する。
func (c *Collector) LoginFailed(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// InvitationChecked は招待トークン検証の結果を記録する。
// resultには "valid" または検証エラーコードを渡す。
func (c *Collector) InvitationChecked(result string) {
	c.invitationChecks.WithLabelValues(result).Inc()
}

// ShiftConflictDetected はシフト重複の検出を記録する。
func (c *Collector) ShiftConflictDetected() {
	c.shiftConflicts.Inc()
}

// ShiftConflictResolved は解決方法付きでシフト重複の解決を記録する。
func (c *Collector) ShiftConflictResolved(resolution string) {
	c.shiftResolutions.WithLabelValues(resolution).Inc()
}

// ObserveHTTPRequest はHTTPリクエストのレイテンシを記録する。
// pathはカーディナリティ抑制のためラベルに含めない。
func (c *Collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpLatency.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
