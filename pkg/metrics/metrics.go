// Package metrics Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 应用级指标集合
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	DeadlineScanRuns    *prometheus.CounterVec
	RemindersCreated    prometheus.Counter
	DeadlineScanFailure prometheus.Counter
	DeadlineScanLatency prometheus.Histogram
	LifecycleTransition *prometheus.CounterVec
	StatsRecompute      *prometheus.CounterVec
}

// New 在给定注册器上注册全部指标；测试传入 prometheus.NewRegistry() 避免重复注册
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appestagio_http_requests_total",
			Help: "HTTP 请求总数，按方法、路由与状态码",
		}, []string{"method", "route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appestagio_http_request_duration_seconds",
			Help:    "HTTP 请求耗时",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),

		DeadlineScanRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appestagio_deadline_scan_runs_total",
			Help: "截止提醒扫描执行次数，按结果（ok/partial/skipped/error）",
		}, []string{"result"}),

		RemindersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "appestagio_deadline_reminders_created_total",
			Help: "新创建的截止提醒通知数",
		}),

		DeadlineScanFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "appestagio_deadline_scan_record_failures_total",
			Help: "扫描中单条记录处理失败数",
		}),

		DeadlineScanLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "appestagio_deadline_scan_duration_seconds",
			Help:    "单次扫描耗时",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		LifecycleTransition: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appestagio_internship_transitions_total",
			Help: "实习状态流转次数，按动作与结果",
		}, []string{"action", "result"}),

		StatsRecompute: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appestagio_statistics_recompute_total",
			Help: "统计快照重算次数，按结果",
		}, []string{"result"}),
	}
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, status).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// ObserveScan 记录一次扫描结果
func (m *Metrics) ObserveScan(result string, created, failed int, d time.Duration) {
	if m != nil {
		m.DeadlineScanRuns.WithLabelValues(result).Inc()
		m.RemindersCreated.Add(float64(created))
		m.DeadlineScanFailure.Add(float64(failed))
		m.DeadlineScanLatency.Observe(d.Seconds())
	}
}

// IncTransition 记录状态流转
func (m *Metrics) IncTransition(action, result string) {
	if m != nil {
		m.LifecycleTransition.WithLabelValues(action, result).Inc()
	}
}

// IncRecompute 记录统计重算
func (m *Metrics) IncRecompute(result string) {
	if m != nil {
		m.StatsRecompute.WithLabelValues(result).Inc()
	}
}
