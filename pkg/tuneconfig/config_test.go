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

package tuneconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
model:
  type: ResNet
  depth: 50
data:
  train:
    pipeline: [resize, normalize]
  samples_per_gpu: 32
log_level: INFO
workflow:
  - [train, 1]
`

func TestConfigGetSet(t *testing.T) {
	t.Parallel()

	cfg, err := FromBytes([]byte(testConfigYAML))
	require.NoError(t, err)

	v, ok := cfg.Get("model.type")
	assert.True(t, ok)
	assert.Equal(t, "ResNet", v)

	v, ok = cfg.Get("data.samples_per_gpu")
	assert.True(t, ok)
	assert.Equal(t, 32, v)

	_, ok = cfg.Get("data.val")
	assert.False(t, ok)
	assert.False(t, cfg.Has("data.val"))

	cfg.Set("data.val.pipeline", []interface{}{"resize"})
	assert.True(t, cfg.Has("data.val.pipeline"))

	// override stages win over what the file declared
	cfg.Set("model.depth", 101)
	v, _ = cfg.Get("model.depth")
	assert.Equal(t, 101, v)

	assert.Equal(t, "INFO", cfg.GetString("log_level", "WARN"))
	assert.Equal(t, "WARN", cfg.GetString("missing", "WARN"))
}

func TestConfigMergeFromDict(t *testing.T) {
	t.Parallel()

	cfg, err := FromBytes([]byte(testConfigYAML))
	require.NoError(t, err)

	cfg.MergeFromDict(map[string]interface{}{
		"model.depth":                18,
		"optimizer.lr":               0.01,
		"data.train.pipeline":        []interface{}{"crop"},
		"data.workers_per_gpu":       4,
		"data.samples_per_gpu":       64,
		"model.backbone.frozen_stem": true,
	})

	v, _ := cfg.Get("model.depth")
	assert.Equal(t, 18, v)
	v, _ = cfg.Get("optimizer.lr")
	assert.Equal(t, 0.01, v)
	v, _ = cfg.Get("data.samples_per_gpu")
	assert.Equal(t, 64, v)
	v, _ = cfg.Get("model.backbone.frozen_stem")
	assert.Equal(t, true, v)

	sub := cfg.Sub("data.train")
	require.NotNil(t, sub)
	assert.Equal(t, []interface{}{"crop"}, sub["pipeline"])
}

func TestConfigFileRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "resnet50.yaml")
	require.NoError(t, os.WriteFile(src, []byte(testConfigYAML), 0o644))

	cfg, err := FromFile(src)
	require.NoError(t, err)
	assert.Equal(t, src, cfg.Filename)

	dst := filepath.Join(dir, "work", "resnet50.yaml")
	require.NoError(t, cfg.Dump(dst))

	reloaded, err := FromFile(dst)
	require.NoError(t, err)
	assert.Equal(t, cfg.Data(), reloaded.Data())
	assert.NotEmpty(t, cfg.PrettyText())
}

func TestFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigDelete(t *testing.T) {
	t.Parallel()

	cfg, err := FromBytes([]byte(testConfigYAML))
	require.NoError(t, err)

	cfg.Delete("model.depth")
	assert.False(t, cfg.Has("model.depth"))
	cfg.Delete("not.a.key")
}
