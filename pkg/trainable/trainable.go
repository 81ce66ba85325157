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

// Package trainable defines the resource-annotated executable unit handed
// to the external trial scheduler. The scheduler owns process-level
// parallelism and retry; a trainable only describes worker scaling and
// exposes a single-invocation entry point.
package trainable

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/mltune/mltune-core/pkg/trial"
)

// ScalingConfig binds worker count and per-worker resource quotas for the
// distributed-execution scheduler.
type ScalingConfig struct {
	NumWorkers    int
	CPUsPerWorker resource.Quantity
	GPUsPerWorker resource.Quantity
	UseGPU        bool
}

// Validate rejects descriptors the scheduler could not place.
func (s ScalingConfig) Validate() error {
	if s.NumWorkers <= 0 {
		return errors.Errorf("invalid worker count %d", s.NumWorkers)
	}
	if s.CPUsPerWorker.Sign() < 0 {
		return errors.Errorf("negative cpu quota %s", s.CPUsPerWorker.String())
	}
	if s.GPUsPerWorker.Sign() < 0 {
		return errors.Errorf("negative gpu quota %s", s.GPUsPerWorker.String())
	}
	if s.UseGPU && s.GPUsPerWorker.IsZero() {
		return errors.New("gpu acceleration requested with a zero gpu quota")
	}
	return nil
}

// RunFunc executes one trial; the call blocks until training completes.
type RunFunc func(ctx context.Context, t trial.Trial) error

// Trainable is the unit submitted to the scheduler: a scaling descriptor
// plus the entry point invoked once per hyperparameter assignment.
type Trainable struct {
	Scaling ScalingConfig
	Run     RunFunc
}

// New validates the scaling descriptor and binds it to the entry point.
func New(scaling ScalingConfig, run RunFunc) (*Trainable, error) {
	if err := scaling.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scaling config")
	}
	if run == nil {
		return nil, errors.New("nil trainable entry point")
	}
	return &Trainable{Scaling: scaling, Run: run}, nil
}
