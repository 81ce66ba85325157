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

package options

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/mltune/mltune-core/pkg/config"
	"github.com/mltune/mltune-core/pkg/rewriter"
	"github.com/mltune/mltune-core/pkg/task"
	"github.com/mltune/mltune-core/pkg/tuneconfig"
)

// Options holds the configurations for the trial runner.
type Options struct {
	genericOptions *GenericOptions
	runnerOptions  *RunnerOptions
}

// NewOptions creates a new Options with a default config.
func NewOptions() *Options {
	return &Options{
		genericOptions: NewGenericOptions(),
		runnerOptions:  NewRunnerOptions(),
	}
}

// AddFlags adds flags to the specified FlagSet.
func (o *Options) AddFlags(fss *cliflag.NamedFlagSets) {
	o.genericOptions.AddFlags(fss)
	o.runnerOptions.AddFlags(fss)
}

// ApplyTo fills up config with options
func (o *Options) ApplyTo(c *config.Configuration) error {
	errList := make([]error, 0, 2)

	errList = append(errList, o.genericOptions.ApplyTo(c.GenericConfiguration))
	errList = append(errList, o.runnerOptions.ApplyTo(c.RunnerConfiguration))

	return errors.NewAggregate(errList)
}

func (o *Options) Config() (*config.Configuration, error) {
	c := config.NewConfiguration()
	if err := o.ApplyTo(c); err != nil {
		return nil, err
	}
	return c, nil
}

// GenericOptions holds the settings shared by every mltune component.
type GenericOptions struct {
	ExperimentName string
	ExperimentRoot string
	MetricsAddress string

	BackendEndpoint string
	BackendTimeout  time.Duration
}

func NewGenericOptions() *GenericOptions {
	return &GenericOptions{
		ExperimentName:  "default",
		ExperimentRoot:  "./experiments",
		BackendEndpoint: "http://127.0.0.1:8085",
	}
}

func (o *GenericOptions) AddFlags(fss *cliflag.NamedFlagSets) {
	fs := fss.FlagSet("generic")

	fs.StringVar(&o.ExperimentName, "experiment-name", o.ExperimentName,
		"name grouping trial results under one experiment")
	fs.StringVar(&o.ExperimentRoot, "experiment-root", o.ExperimentRoot,
		"directory where trial results are persisted")
	fs.StringVar(&o.MetricsAddress, "metrics-address", o.MetricsAddress,
		"address to expose prometheus metrics on; empty disables the endpoint")
	fs.StringVar(&o.BackendEndpoint, "backend-endpoint", o.BackendEndpoint,
		"endpoint of the training framework sidecar")
	fs.DurationVar(&o.BackendTimeout, "backend-timeout", o.BackendTimeout,
		"per-request timeout for framework calls; train calls are never bounded")
}

func (o *GenericOptions) ApplyTo(c *config.GenericConfiguration) error {
	c.ExperimentName = o.ExperimentName
	c.ExperimentRoot = o.ExperimentRoot
	c.MetricsAddress = o.MetricsAddress
	c.BackendEndpoint = o.BackendEndpoint
	c.BackendTimeout = o.BackendTimeout
	return nil
}

// RunnerOptions holds the settings specific to running one trial.
type RunnerOptions struct {
	TaskName    string
	TrialParams []string

	NumWorkers    int
	CPUsPerWorker resource.QuantityValue
	GPUsPerWorker resource.QuantityValue
	UseGPU        string

	RewritersConfig string
}

func NewRunnerOptions() *RunnerOptions {
	o := &RunnerOptions{
		TaskName:   task.ClassificationTaskName,
		NumWorkers: 1,
		UseGPU:     "auto",
	}
	o.CPUsPerWorker.Set("1")
	o.GPUsPerWorker.Set("0")
	return o
}

func (o *RunnerOptions) AddFlags(fss *cliflag.NamedFlagSets) {
	fs := fss.FlagSet("runner")

	fs.StringVar(&o.TaskName, "task", o.TaskName,
		"registered task to run; task arguments go after --")
	fs.StringArrayVar(&o.TrialParams, "trial-params", o.TrialParams,
		"hyper-parameters for this trial as key=value pairs; values parse like cfg-options")
	fs.IntVar(&o.NumWorkers, "num-workers", o.NumWorkers,
		"number of training workers")
	fs.Var(&o.CPUsPerWorker, "cpus-per-worker",
		"cpu quantity reserved per worker")
	fs.Var(&o.GPUsPerWorker, "gpus-per-worker",
		"gpu quantity reserved per worker")
	fs.StringVar(&o.UseGPU, "use-gpu", o.UseGPU,
		"whether workers get GPUs: true, false, or auto to probe the framework")
	fs.StringVar(&o.RewritersConfig, "rewriters-config", o.RewritersConfig,
		"yaml file listing the rewriters applied to each trial context")
}

func (o *RunnerOptions) ApplyTo(c *config.RunnerConfiguration) error {
	c.TaskName = o.TaskName
	c.NumWorkers = o.NumWorkers
	c.CPUsPerWorker = o.CPUsPerWorker.Quantity
	c.GPUsPerWorker = o.GPUsPerWorker.Quantity

	params, err := tuneconfig.ParseCfgOptions(o.TrialParams)
	if err != nil {
		return fmt.Errorf("parse trial params: %v", err)
	}
	c.TrialParams = params

	switch o.UseGPU {
	case "auto":
		c.UseGPU = nil
	case "true":
		v := true
		c.UseGPU = &v
	case "false":
		v := false
		c.UseGPU = &v
	default:
		return fmt.Errorf("invalid use-gpu value %q", o.UseGPU)
	}

	if o.RewritersConfig != "" {
		specs, err := rewriter.LoadSpecs(o.RewritersConfig)
		if err != nil {
			return fmt.Errorf("load rewriters config: %v", err)
		}
		c.RewriterSpecs = specs
	}
	return nil
}
