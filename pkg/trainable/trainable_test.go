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

package trainable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/mltune/mltune-core/pkg/trial"
)

func TestScalingConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		scaling ScalingConfig
		wantErr bool
	}{
		{
			name: "cpu only",
			scaling: ScalingConfig{
				NumWorkers:    2,
				CPUsPerWorker: resource.MustParse("1"),
			},
		},
		{
			name: "gpu workers",
			scaling: ScalingConfig{
				NumWorkers:    4,
				CPUsPerWorker: resource.MustParse("2"),
				GPUsPerWorker: resource.MustParse("1"),
				UseGPU:        true,
			},
		},
		{
			name: "fractional gpu",
			scaling: ScalingConfig{
				NumWorkers:    1,
				CPUsPerWorker: resource.MustParse("500m"),
				GPUsPerWorker: resource.MustParse("500m"),
				UseGPU:        true,
			},
		},
		{
			name:    "zero workers",
			scaling: ScalingConfig{NumWorkers: 0},
			wantErr: true,
		},
		{
			name: "gpu requested without quota",
			scaling: ScalingConfig{
				NumWorkers: 1,
				UseGPU:     true,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.scaling.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	run := func(_ context.Context, _ trial.Trial) error { return nil }

	tr, err := New(ScalingConfig{NumWorkers: 1, CPUsPerWorker: resource.MustParse("1")}, run)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.NoError(t, tr.Run(context.Background(), trial.New("exp", nil)))

	_, err = New(ScalingConfig{NumWorkers: 1}, nil)
	assert.Error(t, err)

	_, err = New(ScalingConfig{}, run)
	assert.Error(t, err)
}
