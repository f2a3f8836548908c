// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とフィード組み立てから利用する。
type MetricsCollector interface {
	RecordStoryUpload(mediaType string)
	RecordStoryView()
	RecordStoryDeletion()
	RecordFeedAssembly(duration time.Duration, userCount int)
	RecordProfileChunkFailure()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storyUploads        *prometheus.CounterVec
	storyViews          prometheus.Counter
	storyDeletions      prometheus.Counter
	feedAssemblies      prometheus.Counter
	feedAssemblyLatency prometheus.Histogram
	feedUserCount       prometheus.Histogram
	profileChunkFail    prometheus.Counter
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storyUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabistory_story_uploads_total",
			Help: "メディア種別ごとのストーリー投稿の合計数",
		}, []string{"media_type"}),
		storyViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabistory_story_views_total",
			Help: "記録された閲覧イベントの合計数",
		}),
		storyDeletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabistory_story_deletions_total",
			Help: "投稿者による明示削除の合計数",
		}),
		feedAssemblies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabistory_feed_assemblies_total",
			Help: "フィード組み立ての合計数",
		}),
		feedAssemblyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabistory_feed_assembly_latency_seconds",
			Help:    "フィード組み立てのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		feedUserCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabistory_feed_user_count",
			Help:    "1回のフィード組み立てに含まれる投稿者数",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		}),
		profileChunkFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabistory_profile_chunk_failures_total",
			Help: "プロフィールチャンク検索失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabistory_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.storyUploads,
		c.storyViews,
		c.storyDeletions,
		c.feedAssemblies,
		c.feedAssemblyLatency,
		c.feedUserCount,
		c.profileChunkFail,
		c.httpStatus,
	)

	return c
}

// RecordStoryUpload はストーリー投稿を記録する。
func (c *Collector) RecordStoryUpload(mediaType string) {
	c.storyUploads.WithLabelValues(mediaType).Inc()
}

// RecordStoryView は閲覧イベントの記録を記録する。
func (c *Collector) RecordStoryView() {
	c.storyViews.Inc()
}

// RecordStoryDeletion はストーリー削除を記録する。
func (c *Collector) RecordStoryDeletion() {
	c.storyDeletions.Inc()
}

// RecordFeedAssembly はフィード組み立ての回数・レイテンシ・投稿者数を記録する。
func (c *Collector) RecordFeedAssembly(duration time.Duration, userCount int) {
	c.feedAssemblies.Inc()
	c.feedAssemblyLatency.Observe(duration.Seconds())
	c.feedUserCount.Observe(float64(userCount))
}

// RecordProfileChunkFailure はプロフィールチャンク検索の失敗を記録する。
func (c *Collector) RecordProfileChunkFailure() {
	c.profileChunkFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
