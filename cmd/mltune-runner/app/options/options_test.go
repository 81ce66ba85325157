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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/mltune/mltune-core/pkg/rewriter"
	"github.com/mltune/mltune-core/pkg/task"
)

func parseOptions(t *testing.T, args ...string) *Options {
	t.Helper()

	opt := NewOptions()
	fss := &cliflag.NamedFlagSets{}
	opt.AddFlags(fss)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	for _, f := range fss.FlagSets {
		fs.AddFlagSet(f)
	}
	require.NoError(t, fs.Parse(args))
	return opt
}

func TestOptionsDefaults(t *testing.T) {
	t.Parallel()

	conf, err := parseOptions(t).Config()
	require.NoError(t, err)

	assert.Equal(t, task.ClassificationTaskName, conf.TaskName)
	assert.Equal(t, 1, conf.NumWorkers)
	assert.Equal(t, "1", conf.CPUsPerWorker.String())
	assert.Nil(t, conf.UseGPU)
	assert.Empty(t, conf.TrialParams)
	assert.Equal(t, "default", conf.ExperimentName)
	assert.Equal(t, "./experiments", conf.ExperimentRoot)
}

func TestOptionsParseFlags(t *testing.T) {
	t.Parallel()

	opt := parseOptions(t,
		"--experiment-name=resnet-sweep",
		"--trial-params", "model.backbone.depth=101",
		"--trial-params", "optimizer.lr=0.01",
		"--num-workers=4",
		"--gpus-per-worker=2",
		"--use-gpu=true",
		"--backend-timeout=5s",
	)
	conf, err := opt.Config()
	require.NoError(t, err)

	assert.Equal(t, "resnet-sweep", conf.ExperimentName)
	assert.Equal(t, 4, conf.NumWorkers)
	assert.Equal(t, "2", conf.GPUsPerWorker.String())
	assert.Equal(t, 5*time.Second, conf.BackendTimeout)

	require.NotNil(t, conf.UseGPU)
	assert.True(t, *conf.UseGPU)

	assert.Equal(t, map[string]interface{}{
		"model.backbone.depth": 101,
		"optimizer.lr":         0.01,
	}, conf.TrialParams)
}

func TestOptionsInvalidUseGPU(t *testing.T) {
	t.Parallel()

	opt := parseOptions(t, "--use-gpu=maybe")
	_, err := opt.Config()
	assert.Error(t, err)
}

func TestOptionsInvalidTrialParams(t *testing.T) {
	t.Parallel()

	opt := parseOptions(t, "--trial-params", "missing-separator")
	_, err := opt.Config()
	assert.Error(t, err)
}

func TestOptionsRewritersConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rewriters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- type: merge\n- type: path\n  flag: --work-dir\n"), 0o644))

	opt := parseOptions(t, "--rewriters-config="+path)
	conf, err := opt.Config()
	require.NoError(t, err)

	require.Len(t, conf.RewriterSpecs, 2)
	assert.Equal(t, rewriter.TypeMerge, conf.RewriterSpecs[0].Type)
	assert.Equal(t, rewriter.TypePath, conf.RewriterSpecs[1].Type)
}

func TestOptionsRewritersConfigMissingFile(t *testing.T) {
	t.Parallel()

	opt := parseOptions(t, "--rewriters-config=/nonexistent/rewriters.yaml")
	_, err := opt.Config()
	assert.Error(t, err)
}
