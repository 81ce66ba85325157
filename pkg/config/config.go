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

// Package config holds the resolved runtime configuration assembled from
// command-line options.
package config

import (
	"time"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/mltune/mltune-core/pkg/rewriter"
)

// GenericConfiguration carries settings shared by every mltune component.
type GenericConfiguration struct {
	// ExperimentName groups trial results under one experiment.
	ExperimentName string
	// ExperimentRoot is where trial results are persisted.
	ExperimentRoot string
	// MetricsAddress exposes prometheus metrics when non-empty.
	MetricsAddress string

	BackendEndpoint string
	BackendTimeout  time.Duration
}

// RunnerConfiguration carries runner-specific settings.
type RunnerConfiguration struct {
	TaskName    string
	TrialParams map[string]interface{}

	NumWorkers    int
	CPUsPerWorker resource.Quantity
	GPUsPerWorker resource.Quantity
	// UseGPU being nil means probe the framework for GPU availability.
	UseGPU *bool

	RewriterSpecs []rewriter.Spec
}

type Configuration struct {
	*GenericConfiguration
	*RunnerConfiguration
}

func NewConfiguration() *Configuration {
	return &Configuration{
		GenericConfiguration: &GenericConfiguration{},
		RunnerConfiguration:  &RunnerConfiguration{},
	}
}
