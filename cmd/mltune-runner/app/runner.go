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

package app

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/mltune/mltune-core/cmd/mltune-runner/app/options"
	"github.com/mltune/mltune-core/pkg/backend"
	"github.com/mltune/mltune-core/pkg/config"
	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/metrics"
	"github.com/mltune/mltune-core/pkg/rewriter"
	"github.com/mltune/mltune-core/pkg/task"
	"github.com/mltune/mltune-core/pkg/trial"
	"github.com/mltune/mltune-core/pkg/util/checkpoint"
)

// Run executes one trial of the configured task against the training
// framework and persists its result under the experiment root.
func Run(opts *options.Options, taskArgs []string) error {
	conf, err := opts.Config()
	if err != nil {
		return errors.Wrap(err, "build configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return run(ctx, conf, backend.HTTPClientFactory{Timeout: conf.BackendTimeout}, taskArgs)
}

func run(ctx context.Context, conf *config.Configuration, factory backend.Factory, taskArgs []string) error {
	var emitter metrics.MetricEmitter = metrics.DummyMetrics{}
	if conf.MetricsAddress != "" {
		prom := metrics.NewPrometheusMetricEmitter(conf.MetricsAddress)
		go prom.Run(ctx)
		emitter = prom.WithTags(string(consts.MLTuneComponentRunner))
	}

	client := factory.CreateClient(conf.BackendEndpoint)
	if err := client.Ping(ctx); err != nil {
		return errors.Wrapf(err, "framework at %s unreachable", conf.BackendEndpoint)
	}

	manager, err := rewriter.NewContextManager(conf.RewriterSpecs)
	if err != nil {
		return errors.Wrap(err, "build rewriter pipeline")
	}

	taskOpts := []task.BaseTaskOption{
		task.WithScaling(conf.NumWorkers, conf.CPUsPerWorker, conf.GPUsPerWorker),
		task.WithRewriters(manager),
		task.WithEmitter(emitter),
	}
	if conf.UseGPU != nil {
		taskOpts = append(taskOpts, task.WithUseGPU(*conf.UseGPU))
	}

	tk, err := task.NewTask(conf.TaskName, task.NewBaseTask(client, taskArgs, taskOpts...))
	if err != nil {
		return err
	}

	trainable, err := tk.CreateTrainable()
	if err != nil {
		return errors.Wrap(err, "create trainable")
	}

	tr := trial.New(conf.ExperimentName, conf.TrialParams)
	klog.Infof("running trial %s of experiment %s with task %s",
		tr.ShortID(), conf.ExperimentName, conf.TaskName)

	stop := make(chan struct{})
	defer close(stop)
	if workDir := workDirOf(taskArgs); workDir != "" {
		// the path rewriter moves artifacts into a per-trial subdir, so
		// the watcher has to follow it there
		for _, spec := range conf.RewriterSpecs {
			if spec.Type == rewriter.TypePath {
				workDir = filepath.Join(workDir, tr.ShortID())
				break
			}
		}
		watcher := checkpoint.NewWatcher(workDir, emitter)
		if err := watcher.Run(stop); err != nil {
			klog.Warningf("checkpoint watcher on %s disabled: %v", workDir, err)
		}
	}

	// the result lands under the experiment root keyed by trial ID; the
	// task work dir stays with the framework artifacts
	result := trial.Result{
		TrialID:        tr.ID,
		ExperimentName: tr.ExperimentName,
		StartedAt:      time.Now(),
	}
	if workDir := workDirOf(taskArgs); workDir != "" {
		result.Meta = map[string]string{"work_dir": workDir}
	}

	runErr := trainable.Run(ctx, tr)
	result.FinishedAt = time.Now()
	result.Metrics = map[string]float64{"duration_seconds": result.Duration().Seconds()}
	if runErr != nil {
		result.Err = runErr.Error()
		klog.Errorf("trial %s failed: %v", tr.ShortID(), runErr)
	} else {
		klog.Infof("trial %s finished in %s", tr.ShortID(), result.Duration())
	}

	if err := trial.NewStore(conf.ExperimentRoot).Save(result); err != nil {
		klog.Errorf("persist result of trial %s: %v", tr.ShortID(), err)
		if runErr == nil {
			return err
		}
	}
	return runErr
}

// workDirOf extracts the value of --work-dir from the task argument
// template, accepting both the split and the = form.
func workDirOf(args []string) string {
	for i, arg := range args {
		if arg == "--work-dir" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--work-dir=") {
			return strings.TrimPrefix(arg, "--work-dir=")
		}
	}
	return ""
}
