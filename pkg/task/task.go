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

// Package task defines the contract every training-task wrapper implements
// and the registry the runner resolves wrappers from. A task translates
// CLI-style argument lists into requests against the wrapped training
// framework; it never schedules trials itself.
package task

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/mltune/mltune-core/pkg/trainable"
)

// Task is the polymorphic surface of a concrete training-task wrapper.
type Task interface {
	// Name returns the registry name of the wrapper.
	Name() string
	// ParseArgs multiplexes a flat argument list into the wrapper's
	// framework-specific argument record. Parsing errors terminate the
	// trial; there is no partial parse.
	ParseArgs(args []string) error
	// Run executes the training entry point with the previously parsed
	// arguments, blocking until the framework training loop returns.
	Run(ctx context.Context) error
	// CreateTrainable binds worker scaling and the context-aware entry
	// point into the unit submitted to the external scheduler.
	CreateTrainable() (*trainable.Trainable, error)
}

// InitFunc constructs a task wrapper around the shared base.
type InitFunc func(base *BaseTask) (Task, error)

var taskInitializers sync.Map

// RegisterTaskInitializer is used to register task wrapper init functions;
// built-in wrappers register themselves in package init.
func RegisterTaskInitializer(name string, initFunc InitFunc) {
	taskInitializers.Store(name, initFunc)
}

// NewTask resolves a registered wrapper by name and hands it the base.
func NewTask(name string, base *BaseTask) (Task, error) {
	v, ok := taskInitializers.Load(name)
	if !ok {
		return nil, errors.Errorf("unknown task %q, expected one of %v", name, knownTasks())
	}
	base.name = name
	t, err := v.(InitFunc)(base)
	if err != nil {
		return nil, errors.Wrapf(err, "initialize task %q", name)
	}
	base.bind(t)
	return t, nil
}

func knownTasks() []string {
	var known []string
	taskInitializers.Range(func(key, _ interface{}) bool {
		known = append(known, key.(string))
		return true
	})
	sort.Strings(known)
	return known
}
