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

package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mltune/mltune-core/pkg/consts"
)

func TestParse(t *testing.T) {
	for _, valid := range []string{"none", "pytorch", "slurm", "mpi"} {
		got, err := Parse(valid)
		require.NoError(t, err)
		assert.Equal(t, Type(valid), got)
	}

	_, err := Parse("kubernetes")
	assert.Error(t, err)
}

func TestDistributed(t *testing.T) {
	t.Parallel()

	assert.False(t, TypeNone.Distributed())
	assert.True(t, TypePytorch.Distributed())
	assert.True(t, TypeSlurm.Distributed())
	assert.True(t, TypeMPI.Distributed())
}

func TestResolveNone(t *testing.T) {
	info, err := Resolve(TypeNone)
	require.NoError(t, err)
	assert.Equal(t, DistInfo{Rank: 0, WorldSize: 1, LocalRank: 0}, info)
}

func TestResolvePytorch(t *testing.T) {
	t.Setenv(consts.EnvPytorchRank, "1")
	t.Setenv(consts.EnvPytorchWorldSize, "4")
	t.Setenv(consts.EnvLocalRank, "1")
	t.Setenv(consts.EnvPytorchMasterAddr, "10.0.0.8")
	t.Setenv(consts.EnvPytorchMasterPort, "23456")

	info, err := Resolve(TypePytorch)
	require.NoError(t, err)
	assert.Equal(t, DistInfo{
		Rank:       1,
		WorldSize:  4,
		LocalRank:  1,
		MasterAddr: "10.0.0.8",
		MasterPort: 23456,
	}, info)
}

func TestResolvePytorchDefaults(t *testing.T) {
	t.Setenv(consts.EnvPytorchRank, "")
	t.Setenv(consts.EnvPytorchWorldSize, "")

	info, err := Resolve(TypePytorch)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Rank)
	assert.Equal(t, 1, info.WorldSize)
}

func TestResolveSlurm(t *testing.T) {
	t.Setenv(consts.EnvSlurmProcID, "3")
	t.Setenv(consts.EnvSlurmNTasks, "8")
	t.Setenv(consts.EnvSlurmLocalID, "3")
	t.Setenv(consts.EnvSlurmNodeList, "gpu[03-08],gpu12")

	info, err := Resolve(TypeSlurm)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Rank)
	assert.Equal(t, 8, info.WorldSize)
	assert.Equal(t, "gpu03", info.MasterAddr)
}

func TestResolveMPI(t *testing.T) {
	t.Setenv(consts.EnvMPIRank, "2")
	t.Setenv(consts.EnvMPIWorldSize, "3")
	t.Setenv(consts.EnvMPILocalRank, "0")

	info, err := Resolve(TypeMPI)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Rank)
	assert.Equal(t, 3, info.WorldSize)
}

func TestResolveRankOutsideWorld(t *testing.T) {
	t.Setenv(consts.EnvMPIRank, "5")
	t.Setenv(consts.EnvMPIWorldSize, "2")

	_, err := Resolve(TypeMPI)
	assert.Error(t, err)
}

func TestFirstSlurmNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		nodeList string
		want     string
	}{
		{nodeList: "node1", want: "node1"},
		{nodeList: "node1,node2", want: "node1"},
		{nodeList: "node[03-08]", want: "node03"},
		{nodeList: "node[1,4,7]", want: "node1"},
		{nodeList: "gpu[12]", want: "gpu12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, firstSlurmNode(tt.nodeList), "nodeList=%s", tt.nodeList)
	}
}
