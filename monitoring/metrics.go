// Package monitoring 提供进程内指标收集
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// DefaultLatencyBuckets 请求耗时分桶（秒）
var DefaultLatencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metric 单个带标签的时间序列
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Help   string            `json:"help,omitempty"`

	// 仅直方图使用
	Buckets      []float64 `json:"buckets,omitempty"`
	BucketCounts []uint64  `json:"bucket_counts,omitempty"`
	Count        uint64    `json:"count,omitempty"`
}

// MetricsCollector 指标收集器。nil 收集器丢弃所有记录。
type MetricsCollector struct {
	metrics     map[string]*Metric
	help        map[string]string
	metricsLock sync.RWMutex

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*Metric),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// SetHelp 设置指标说明
func (mc *MetricsCollector) SetHelp(name, help string) {
	if mc == nil {
		return
	}
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.help[name] = help
}

// IncrCounter 计数器加一
func (mc *MetricsCollector) IncrCounter(name string, labels map[string]string) {
	mc.AddCounter(name, 1, labels)
}

// AddCounter 计数器增加
func (mc *MetricsCollector) AddCounter(name string, value float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.series(name, MetricTypeCounter, labels, nil).Value += value
}

// SetGauge 设置仪表
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.series(name, MetricTypeGauge, labels, nil).Value = value
}

// RecordHistogram 记录直方图观测值。桶在首次记录时确定。
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string, buckets []float64) {
	if mc == nil {
		return
	}
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	m := mc.series(name, MetricTypeHistogram, labels, buckets)
	m.Value += value
	m.Count++
	for i, upper := range m.Buckets {
		if value <= upper {
			m.BucketCounts[i]++
		}
	}
}

// series 返回名称+标签对应的序列，调用方持有写锁
func (mc *MetricsCollector) series(name string, typ MetricType, labels map[string]string, buckets []float64) *Metric {
	key := name + labelString(labels)
	m, ok := mc.metrics[key]
	if !ok {
		m = &Metric{Name: name, Type: typ, Labels: copyLabels(labels)}
		if typ == MetricTypeHistogram {
			m.Buckets = append([]float64(nil), buckets...)
			sort.Float64s(m.Buckets)
			m.BucketCounts = make([]uint64, len(m.Buckets))
		}
		mc.metrics[key] = m
	}
	return m
}

// GetMetric 获取某个名称下所有序列的副本
func (mc *MetricsCollector) GetMetric(name string) ([]Metric, error) {
	if mc == nil {
		return nil, fmt.Errorf("metric %s not found", name)
	}
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	var result []Metric
	for _, m := range mc.metrics {
		if m.Name == name {
			result = append(result, copyMetric(m))
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("metric %s not found", name)
	}
	sort.Slice(result, func(i, j int) bool {
		return labelString(result[i].Labels) < labelString(result[j].Labels)
	})
	return result, nil
}

// CounterValue 返回计数器当前值，不存在时为0
func (mc *MetricsCollector) CounterValue(name string, labels map[string]string) float64 {
	if mc == nil {
		return 0
	}
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	if m, ok := mc.metrics[name+labelString(labels)]; ok {
		return m.Value
	}
	return 0
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	if mc == nil {
		return ""
	}
	mc.SetGauge("process_uptime_seconds", mc.GetUptime().Seconds(), nil)
	mc.SetGauge("go_goroutines", float64(runtime.NumGoroutine()), nil)
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	mc.SetGauge("go_memstats_heap_alloc_bytes", float64(mem.HeapAlloc), nil)

	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	byName := make(map[string][]*Metric)
	for _, m := range mc.metrics {
		byName[m.Name] = append(byName[m.Name], m)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		series := byName[name]
		sort.Slice(series, func(i, j int) bool {
			return labelString(series[i].Labels) < labelString(series[j].Labels)
		})
		help := mc.help[name]
		if help == "" {
			help = fmt.Sprintf("Metric %s", name)
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, series[0].Type)
		for _, m := range series {
			if m.Type != MetricTypeHistogram {
				fmt.Fprintf(&b, "%s%s %s\n", name, labelString(m.Labels), formatFloat(m.Value))
				continue
			}
			for i, upper := range m.Buckets {
				fmt.Fprintf(&b, "%s_bucket%s %d\n", name, labelString(withLabel(m.Labels, "le", formatFloat(upper))), m.BucketCounts[i])
			}
			fmt.Fprintf(&b, "%s_bucket%s %d\n", name, labelString(withLabel(m.Labels, "le", "+Inf")), m.Count)
			fmt.Fprintf(&b, "%s_sum%s %s\n", name, labelString(m.Labels), formatFloat(m.Value))
			fmt.Fprintf(&b, "%s_count%s %d\n", name, labelString(m.Labels), m.Count)
		}
	}
	return b.String()
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// labelString 按键排序生成 {k="v",...}
func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := copyLabels(labels)
	if out == nil {
		out = make(map[string]string, 1)
	}
	out[key] = value
	return out
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func copyMetric(m *Metric) Metric {
	c := *m
	c.Labels = copyLabels(m.Labels)
	c.Buckets = append([]float64(nil), m.Buckets...)
	c.BucketCounts = append([]uint64(nil), m.BucketCounts...)
	return c
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
