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

// Package metrics contains the implementations used to emit metrics that
// reflect the running states of trial executions.
package metrics

import "context"

type MetricTypeName string

const (
	// MetricTypeNameRaw emits raw metrics which report the last value
	MetricTypeNameRaw MetricTypeName = "raw"
	// MetricTypeNameCount emits counter metrics which are monotonic
	MetricTypeNameCount MetricTypeName = "count"
)

type MetricTag struct {
	Key, Val string
}

// MetricEmitter interface defines the action of emitting metrics, supporting
// different kinds of metrics backends if needed.
type MetricEmitter interface {
	// StoreInt64 receives the given int64 metrics item and sends it to the backend store.
	StoreInt64(key string, val int64, emitType MetricTypeName, tags ...MetricTag) error
	// StoreFloat64 receives the given float64 metrics item and sends it to the backend store.
	StoreFloat64(key string, val float64, emitType MetricTypeName, tags ...MetricTag) error
	// WithTags adds a unit tag and common tags to the emitter.
	WithTags(unit string, commonTags ...MetricTag) MetricEmitter
	// Run ensures the starting logic works; backends like prometheus need to
	// be started to serve their scrape endpoint
	Run(ctx context.Context)
}

type DummyMetrics struct{}

func (d DummyMetrics) StoreInt64(_ string, _ int64, _ MetricTypeName, _ ...MetricTag) error {
	return nil
}

func (d DummyMetrics) StoreFloat64(_ string, _ float64, _ MetricTypeName, _ ...MetricTag) error {
	return nil
}

func (d DummyMetrics) WithTags(unit string, commonTags ...MetricTag) MetricEmitter {
	wrapper := &MetricTagWrapper{MetricEmitter: d}
	return wrapper.WithTags(unit, commonTags...)
}

func (d DummyMetrics) Run(_ context.Context) {}

var _ MetricEmitter = DummyMetrics{}

// ConvertMapToTags only passes maps to metrics related functions
func ConvertMapToTags(tags map[string]string) []MetricTag {
	res := make([]MetricTag, 0, len(tags))
	for k, v := range tags {
		res = append(res, MetricTag{Key: k, Val: v})
	}
	return res
}
