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

package task

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/klog/v2"

	"github.com/mltune/mltune-core/pkg/backend"
	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/metrics"
	"github.com/mltune/mltune-core/pkg/rewriter"
	"github.com/mltune/mltune-core/pkg/trainable"
	"github.com/mltune/mltune-core/pkg/trial"
	"github.com/mltune/mltune-core/pkg/util/general"
)

const (
	metricsNameTrialStarted  = "trial_started"
	metricsNameTrialFailed   = "trial_failed"
	metricsNameTrialDuration = "trial_duration_seconds"
)

// BaseTask carries the state shared by every task wrapper: worker scaling,
// the rewriter pipeline, the framework client and the metric emitter. A
// concrete wrapper embeds it and supplies ParseArgs/Run.
type BaseTask struct {
	name string

	numWorkers    int
	cpusPerWorker resource.Quantity
	gpusPerWorker resource.Quantity
	// useGPU overrides backend probing when non-nil
	useGPU *bool

	taskArgs []string
	manager  *rewriter.ContextManager
	client   backend.Client
	emitter  metrics.MetricEmitter

	// impl is the embedding wrapper; set by NewTask via bind
	impl Task
}

// BaseTaskOption mutates construction defaults.
type BaseTaskOption func(*BaseTask)

func WithScaling(numWorkers int, cpus, gpus resource.Quantity) BaseTaskOption {
	return func(b *BaseTask) {
		b.numWorkers = numWorkers
		b.cpusPerWorker = cpus
		b.gpusPerWorker = gpus
	}
}

func WithUseGPU(useGPU bool) BaseTaskOption {
	return func(b *BaseTask) { b.useGPU = &useGPU }
}

func WithRewriters(manager *rewriter.ContextManager) BaseTaskOption {
	return func(b *BaseTask) { b.manager = manager }
}

func WithEmitter(emitter metrics.MetricEmitter) BaseTaskOption {
	return func(b *BaseTask) { b.emitter = emitter }
}

// NewBaseTask wires the shared task state; taskArgs is the argument-list
// template re-parsed (after rewriting) on every trial invocation.
func NewBaseTask(client backend.Client, taskArgs []string, opts ...BaseTaskOption) *BaseTask {
	base := &BaseTask{
		numWorkers:    1,
		cpusPerWorker: resource.MustParse("1"),
		taskArgs:      taskArgs,
		client:        client,
		emitter:       metrics.DummyMetrics{},
	}
	for _, opt := range opts {
		opt(base)
	}
	if base.manager == nil {
		manager, _ := rewriter.NewContextManager(nil)
		base.manager = manager
	}
	return base
}

// Name returns the registry name the task was resolved under.
func (b *BaseTask) Name() string {
	return b.name
}

// Backend exposes the framework client to embedding wrappers.
func (b *BaseTask) Backend() backend.Client {
	return b.client
}

// bind attaches the embedding wrapper so the base can dispatch back into
// its ParseArgs/Run through the trainable entry point.
func (b *BaseTask) bind(impl Task) {
	b.impl = impl
}

// ContextAwareRun is the per-trial entry point: it establishes the local
// rank variable the wrapped framework reads if it is absent, applies the
// rewriter pipeline to a fresh copy of the argument template, re-parses
// the rewritten arguments and dispatches into the wrapper's Run.
func (b *BaseTask) ContextAwareRun(ctx context.Context, t trial.Trial) error {
	if b.impl == nil {
		return errors.New("task base not bound to a wrapper")
	}

	written, err := general.SetEnvIfAbsent(consts.EnvLocalRank, "0")
	if err != nil {
		return errors.Wrap(err, "establish local rank")
	}
	if written {
		klog.V(2).Infof("%s not set, defaulting to 0", consts.EnvLocalRank)
	}

	tags := []metrics.MetricTag{
		{Key: "task", Val: b.name},
		{Key: "experiment", Val: t.ExperimentName},
	}
	_ = b.emitter.StoreInt64(metricsNameTrialStarted, 1, metrics.MetricTypeNameCount, tags...)

	args := make([]string, len(b.taskArgs))
	copy(args, b.taskArgs)

	rctx := &rewriter.Context{Trial: t, Args: args}
	start := time.Now()

	rctx, err = b.manager.Apply(rctx)
	if err != nil {
		_ = b.emitter.StoreInt64(metricsNameTrialFailed, 1, metrics.MetricTypeNameCount, tags...)
		return errors.Wrapf(err, "rewrite context for trial %s", t.ID)
	}

	if err := b.impl.ParseArgs(rctx.Args); err != nil {
		_ = b.emitter.StoreInt64(metricsNameTrialFailed, 1, metrics.MetricTypeNameCount, tags...)
		return err
	}

	err = b.impl.Run(ctx)
	_ = b.emitter.StoreFloat64(metricsNameTrialDuration, time.Since(start).Seconds(), metrics.MetricTypeNameRaw, tags...)
	if err != nil {
		_ = b.emitter.StoreInt64(metricsNameTrialFailed, 1, metrics.MetricTypeNameCount, tags...)
	}
	return err
}

// CreateTrainable binds the context-aware entry point and the worker
// scaling descriptor into the unit the external scheduler consumes. GPU
// availability is probed from the framework unless an explicit override
// was configured.
func (b *BaseTask) CreateTrainable() (*trainable.Trainable, error) {
	useGPU := false
	if b.useGPU != nil {
		useGPU = *b.useGPU
	} else {
		available, err := b.client.GPUAvailable(context.Background())
		if err != nil {
			return nil, errors.Wrap(err, "probe gpu availability")
		}
		useGPU = available && !b.gpusPerWorker.IsZero()
	}

	scaling := trainable.ScalingConfig{
		NumWorkers:    b.numWorkers,
		CPUsPerWorker: b.cpusPerWorker,
		GPUsPerWorker: b.gpusPerWorker,
		UseGPU:        useGPU,
	}
	return trainable.New(scaling, b.ContextAwareRun)
}

// localRankString formats a rank for the environment export done by
// wrappers that accept an explicit --local_rank flag.
func localRankString(rank int) string {
	return strconv.Itoa(rank)
}
