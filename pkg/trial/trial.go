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

// Package trial defines the identity and outcome of a single tuning trial:
// one execution of a training task under a specific hyperparameter
// assignment chosen by the external scheduler.
package trial

import (
	"time"

	"github.com/google/uuid"
)

// Trial is one hyperparameter assignment to execute.
type Trial struct {
	ID             string                 `json:"id"`
	ExperimentName string                 `json:"experiment_name"`
	Params         map[string]interface{} `json:"params"`
	Attempt        int                    `json:"attempt"`
}

// New mints a trial with a fresh ID.
func New(experimentName string, params map[string]interface{}) Trial {
	return Trial{
		ID:             uuid.NewString(),
		ExperimentName: experimentName,
		Params:         params,
	}
}

// ShortID is the path-friendly trial identifier used to suffix work
// directories.
func (t Trial) ShortID() string {
	if len(t.ID) > 8 {
		return t.ID[:8]
	}
	return t.ID
}

// Result is the write-once outcome of a trial run; metadata fields are
// recorded for reproducibility and never read back by this repo.
type Result struct {
	TrialID        string             `json:"trial_id"`
	ExperimentName string             `json:"experiment_name"`
	WorkDir        string             `json:"work_dir"`
	Seed           int64              `json:"seed"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Meta           map[string]string  `json:"meta,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	Err            string             `json:"error,omitempty"`
}

// Succeeded reports whether the trial finished without an error.
func (r Result) Succeeded() bool {
	return r.Err == ""
}

// Duration is the wall-clock time of the trial run.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
