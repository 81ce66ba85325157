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

// Package rewriter implements the context redefinition pipeline: a chain of
// named configuration transformations applied to a trial's context right
// before the training task runs.
package rewriter

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/mltune/mltune-core/pkg/trial"
	"github.com/mltune/mltune-core/pkg/tuneconfig"
)

// Context is the mutable state handed through the rewriter chain. Args is
// the CLI-style argument list the task will re-parse after rewriting; Cfg
// is populated once an instantiate rewriter runs.
type Context struct {
	Trial trial.Trial
	Args  []string
	Cfg   *tuneconfig.Config

	// CheckpointDir points at the directory scanned for resumable
	// checkpoints, usually the trial work dir of a previous attempt
	CheckpointDir string
}

// Rewriter accepts the current trial context and returns a possibly-mutated
// context. Implementations may mutate in place and return the argument.
type Rewriter interface {
	Rewrite(ctx *Context) (*Context, error)
}

// ContextManager applies a rewriter chain in its declared order.
type ContextManager struct {
	rewriters []Rewriter
}

// NewContextManager builds the chain from specs; an empty spec list yields
// a pass-through manager.
func NewContextManager(specs []Spec) (*ContextManager, error) {
	rewriters, err := BuildRewriters(specs)
	if err != nil {
		return nil, err
	}
	return &ContextManager{rewriters: rewriters}, nil
}

// Apply runs every rewriter in order, failing fast on the first error.
func (m *ContextManager) Apply(ctx *Context) (*Context, error) {
	for i, r := range m.rewriters {
		next, err := r.Rewrite(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "rewriter %d of %d failed", i+1, len(m.rewriters))
		}
		ctx = next
	}
	klog.V(4).Infof("applied %d rewriters for trial %s", len(m.rewriters), ctx.Trial.ID)
	return ctx, nil
}
