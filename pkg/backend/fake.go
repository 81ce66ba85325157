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

package backend

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is an in-memory Client for tests; every request is recorded
// and canned responses can be injected per call.
type FakeClient struct {
	mux sync.Mutex

	VersionString string
	GPU           bool
	Device        string
	DefaultSeed   int64
	WorldSize     int
	Classes       []string
	Env           map[string]string

	TrainErr error
	BuildErr error

	TuningApplied []EnvTuning
	GroupSpecs    []ProcessGroupSpec
	SeedSpecs     []SeedSpec
	ModelSpecs    []map[string]interface{}
	DatasetSpecs  []map[string]interface{}
	TrainRequests []TrainRequest

	modelSeq   int
	datasetSeq int
}

var _ Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{
		VersionString: "0.23.2",
		Device:        "cpu",
		DefaultSeed:   2021,
		WorldSize:     1,
		Classes:       []string{"cat", "dog"},
		Env:           map[string]string{"framework": "fake"},
	}
}

func (f *FakeClient) Ping(_ context.Context) error { return nil }

func (f *FakeClient) Version(_ context.Context) (string, error) {
	return f.VersionString, nil
}

func (f *FakeClient) GPUAvailable(_ context.Context) (bool, error) {
	return f.GPU, nil
}

func (f *FakeClient) AutoSelectDevice(_ context.Context) (string, error) {
	return f.Device, nil
}

func (f *FakeClient) CollectEnv(_ context.Context) (map[string]string, error) {
	return f.Env, nil
}

func (f *FakeClient) SetupEnvironment(_ context.Context, tuning EnvTuning) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.TuningApplied = append(f.TuningApplied, tuning)
	return nil
}

func (f *FakeClient) InitProcessGroup(_ context.Context, spec ProcessGroupSpec) (int, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.GroupSpecs = append(f.GroupSpecs, spec)
	if spec.WorldSize > 0 {
		return spec.WorldSize, nil
	}
	return f.WorldSize, nil
}

func (f *FakeClient) InitRandomSeed(_ context.Context, spec SeedSpec) (int64, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.SeedSpecs = append(f.SeedSpecs, spec)
	if spec.Seed != nil {
		return *spec.Seed, nil
	}
	return f.DefaultSeed, nil
}

func (f *FakeClient) BuildModel(_ context.Context, spec map[string]interface{}) (ModelHandle, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.BuildErr != nil {
		return ModelHandle{}, f.BuildErr
	}
	f.ModelSpecs = append(f.ModelSpecs, spec)
	f.modelSeq++
	return ModelHandle{ID: fmt.Sprintf("model-%d", f.modelSeq)}, nil
}

func (f *FakeClient) BuildDataset(_ context.Context, spec map[string]interface{}) (DatasetHandle, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.BuildErr != nil {
		return DatasetHandle{}, f.BuildErr
	}
	f.DatasetSpecs = append(f.DatasetSpecs, spec)
	f.datasetSeq++
	return DatasetHandle{ID: fmt.Sprintf("dataset-%d", f.datasetSeq), Classes: f.Classes}, nil
}

func (f *FakeClient) Train(_ context.Context, req TrainRequest) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.TrainRequests = append(f.TrainRequests, req)
	return f.TrainErr
}
