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
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mltune/mltune-core/pkg/trial"
)

func seedResults(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	store := trial.NewStore(root)
	base := time.Now()
	for i, acc := range []float64{0.91, 0.95, 0.87} {
		require.NoError(t, store.Save(trial.Result{
			TrialID:        trial.New("exp", nil).ID,
			ExperimentName: "exp",
			Metrics:        map[string]float64{"accuracy": acc},
			StartedAt:      base,
			FinishedAt:     base.Add(time.Duration(i+1) * time.Minute),
		}))
	}
	return root
}

func TestReportTableOutput(t *testing.T) {
	t.Parallel()

	root := seedResults(t)
	cmd := NewReportCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--experiment-root=" + root, "--metric=accuracy"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "metric:  accuracy")
	assert.Contains(t, out.String(), "trials:  3 (0 failed)")
}

func TestReportJSONOutput(t *testing.T) {
	t.Parallel()

	root := seedResults(t)
	cmd := NewReportCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--experiment-root=" + root, "--metric=accuracy", "--format=json"})

	require.NoError(t, cmd.Execute())

	var summary trial.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, "accuracy", summary.Metric)
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 0.91, summary.Mean, 1e-9)
}

func TestReportUnknownFormat(t *testing.T) {
	t.Parallel()

	cmd := NewReportCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--experiment-root=" + t.TempDir(), "--format=xml"})

	assert.Error(t, cmd.Execute())
}
