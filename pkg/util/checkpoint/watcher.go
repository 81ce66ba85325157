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

// Package checkpoint reports checkpoint files appearing in a trial work
// dir while the wrapped framework trains, giving the scheduler side some
// progress visibility without touching the framework itself.
package checkpoint

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	"github.com/mltune/mltune-core/pkg/metrics"
	"github.com/mltune/mltune-core/pkg/util/general"
)

const metricsNameCheckpointSaved = "checkpoint_saved"

const checkpointSuffix = ".pth"

// Watcher counts checkpoint files written below a trial work dir.
type Watcher struct {
	dir     string
	emitter metrics.MetricEmitter
	saved   atomic.Int64
}

func NewWatcher(dir string, emitter metrics.MetricEmitter) *Watcher {
	if emitter == nil {
		emitter = metrics.DummyMetrics{}
	}
	return &Watcher{dir: dir, emitter: emitter}
}

// Saved returns the number of checkpoints observed so far.
func (w *Watcher) Saved() int64 {
	return w.saved.Load()
}

// Run watches until stop is closed; the work dir must exist before the
// call since fsnotify cannot watch a missing path.
func (w *Watcher) Run(stop <-chan struct{}) error {
	if err := general.EnsureDirectory(w.dir); err != nil {
		return err
	}

	events, err := general.RegisterFileEventWatcher(stop, general.FileWatcherInfo{
		Path: []string{w.dir},
		Op:   fsnotify.Create | fsnotify.Write,
	})
	if err != nil {
		return err
	}

	go func() {
		seen := map[string]struct{}{}
		for name := range events {
			if !strings.HasSuffix(name, checkpointSuffix) {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}

			count := w.saved.Inc()
			klog.Infof("checkpoint %s saved, %d so far", filepath.Base(name), count)
			_ = w.emitter.StoreInt64(metricsNameCheckpointSaved, 1, metrics.MetricTypeNameCount,
				metrics.MetricTag{Key: "work_dir", Val: w.dir})
		}
	}()
	return nil
}
