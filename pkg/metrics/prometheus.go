/*
Copyright 2023 The MLTune Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

// PrometheusMetricEmitter emits metrics through a process-local prometheus
// registry and serves them on the configured address. Raw items map to
// gauges, count items to counters; vectors are created lazily on first use
// with the tag keys seen at that time, so a metric key must always be
// emitted with the same tag set.
type PrometheusMetricEmitter struct {
	mux      sync.Mutex
	address  string
	registry *prometheus.Registry
	gauges   map[string]*prometheus.GaugeVec
	counters map[string]*prometheus.CounterVec
}

var _ MetricEmitter = &PrometheusMetricEmitter{}

func NewPrometheusMetricEmitter(address string) *PrometheusMetricEmitter {
	return &PrometheusMetricEmitter{
		address:  address,
		registry: prometheus.NewRegistry(),
		gauges:   map[string]*prometheus.GaugeVec{},
		counters: map[string]*prometheus.CounterVec{},
	}
}

func (p *PrometheusMetricEmitter) StoreInt64(key string, val int64, emitType MetricTypeName, tags ...MetricTag) error {
	return p.StoreFloat64(key, float64(val), emitType, tags...)
}

func (p *PrometheusMetricEmitter) StoreFloat64(key string, val float64, emitType MetricTypeName, tags ...MetricTag) error {
	labelKeys, labelValues := splitTags(tags)

	p.mux.Lock()
	defer p.mux.Unlock()

	switch emitType {
	case MetricTypeNameCount:
		vec, ok := p.counters[key]
		if !ok {
			vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: key}, labelKeys)
			if err := p.registry.Register(vec); err != nil {
				return err
			}
			p.counters[key] = vec
		}
		counter, err := vec.GetMetricWithLabelValues(labelValues...)
		if err != nil {
			return err
		}
		counter.Add(val)
	default:
		vec, ok := p.gauges[key]
		if !ok {
			vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: key}, labelKeys)
			if err := p.registry.Register(vec); err != nil {
				return err
			}
			p.gauges[key] = vec
		}
		gauge, err := vec.GetMetricWithLabelValues(labelValues...)
		if err != nil {
			return err
		}
		gauge.Set(val)
	}
	return nil
}

func (p *PrometheusMetricEmitter) WithTags(unit string, commonTags ...MetricTag) MetricEmitter {
	wrapper := &MetricTagWrapper{MetricEmitter: p}
	return wrapper.WithTags(unit, commonTags...)
}

// Run serves the scrape endpoint until ctx is canceled; it returns
// immediately when no address was configured.
func (p *PrometheusMetricEmitter) Run(ctx context.Context) {
	if p.address == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: p.address, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Errorf("metrics server on %s failed: %v", p.address, err)
		}
	}()
}

// splitTags returns tag keys and values in a deterministic order so that a
// metric key always binds its labels consistently.
func splitTags(tags []MetricTag) ([]string, []string) {
	sorted := make([]MetricTag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	keys := make([]string, 0, len(sorted))
	values := make([]string, 0, len(sorted))
	for _, tag := range sorted {
		keys = append(keys, tag.Key)
		values = append(values, tag.Val)
	}
	return keys, values
}
