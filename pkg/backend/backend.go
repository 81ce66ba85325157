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

// Package backend defines the call contract towards the wrapped training
// framework. The framework owns models, datasets, the distributed process
// group and the training loop; this repo only translates resolved trial
// parameters into requests against this contract. Errors propagate to the
// caller unwrapped by any retry logic.
package backend

import (
	"context"
	"time"
)

// ProcessGroupSpec carries explicit rank information into process-group
// initialization instead of relying on ambient environment variables.
type ProcessGroupSpec struct {
	Launcher   string `json:"launcher"`
	Rank       int    `json:"rank"`
	WorldSize  int    `json:"world_size"`
	LocalRank  int    `json:"local_rank"`
	MasterAddr string `json:"master_addr,omitempty"`
	MasterPort int    `json:"master_port,omitempty"`
}

// EnvTuning mirrors the multiprocessing and cudnn knobs applied before a
// training run.
type EnvTuning struct {
	OMPNumThreads  int  `json:"omp_num_threads,omitempty"`
	MKLNumThreads  int  `json:"mkl_num_threads,omitempty"`
	CudnnBenchmark bool `json:"cudnn_benchmark"`
}

// SeedSpec asks the framework for the effective random seed. A nil Seed
// lets the framework pick its default; Deterministic toggles deterministic
// kernels.
type SeedSpec struct {
	Seed          *int64 `json:"seed,omitempty"`
	Device        string `json:"device"`
	Deterministic bool   `json:"deterministic"`
}

// ModelHandle references a model instantiated inside the framework.
type ModelHandle struct {
	ID string `json:"id"`
}

// DatasetHandle references a dataset instantiated inside the framework;
// Classes carries the dataset class labels for trial metadata.
type DatasetHandle struct {
	ID      string   `json:"id"`
	Classes []string `json:"classes"`
}

// TrainRequest is the fully resolved training invocation.
type TrainRequest struct {
	ModelID     string                 `json:"model_id"`
	DatasetIDs  []string               `json:"dataset_ids"`
	ConfigText  string                 `json:"config"`
	WorkDir     string                 `json:"work_dir"`
	Device      string                 `json:"device"`
	GPUIDs      []int                  `json:"gpu_ids"`
	Distributed bool                   `json:"distributed"`
	Validate    bool                   `json:"validate"`
	Timestamp   string                 `json:"timestamp"`
	Seed        int64                  `json:"seed"`
	Determinism bool                   `json:"deterministic"`
	Meta        map[string]interface{} `json:"meta"`
}

// Client is the stable surface of the wrapped training framework.
type Client interface {
	// Ping checks framework liveness.
	Ping(ctx context.Context) error
	// Version returns the wrapped framework version string.
	Version(ctx context.Context) (string, error)
	// GPUAvailable reports whether the framework sees usable GPUs.
	GPUAvailable(ctx context.Context) (bool, error)
	// AutoSelectDevice resolves the device the framework would train on.
	AutoSelectDevice(ctx context.Context) (string, error)
	// CollectEnv snapshots the framework-side environment for trial metadata.
	CollectEnv(ctx context.Context) (map[string]string, error)
	// SetupEnvironment applies multiprocessing/cudnn tuning process-wide.
	SetupEnvironment(ctx context.Context, tuning EnvTuning) error
	// InitProcessGroup initializes the distributed process group and returns
	// the resolved world size.
	InitProcessGroup(ctx context.Context, spec ProcessGroupSpec) (int, error)
	// InitRandomSeed resolves and applies the effective random seed.
	InitRandomSeed(ctx context.Context, spec SeedSpec) (int64, error)
	// BuildModel constructs the model described by spec (the config's model
	// section).
	BuildModel(ctx context.Context, spec map[string]interface{}) (ModelHandle, error)
	// BuildDataset constructs a dataset described by spec.
	BuildDataset(ctx context.Context, spec map[string]interface{}) (DatasetHandle, error)
	// Train blocks on the framework training loop until it completes.
	Train(ctx context.Context, req TrainRequest) error
}

// Factory creates clients for a framework endpoint; the runner uses the
// HTTP factory and tests substitute the fake one.
type Factory interface {
	CreateClient(endpoint string) Client
}

type HTTPClientFactory struct {
	// Timeout bounds every request except Train; zero keeps the default.
	Timeout time.Duration
}

func (f HTTPClientFactory) CreateClient(endpoint string) Client {
	return NewHTTPClient(endpoint).WithTimeout(f.Timeout)
}

type FakeClientFactory struct{}

func (f FakeClientFactory) CreateClient(_ string) Client {
	return NewFakeClient()
}
