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
	"strings"

	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/util/general"
)

const (
	defaultMasterAddr = "127.0.0.1"
	defaultMasterPort = 29500
)

func init() {
	RegisterResolver(TypeNone, resolveNone)
	RegisterResolver(TypePytorch, resolvePytorch)
	RegisterResolver(TypeSlurm, resolveSlurm)
	RegisterResolver(TypeMPI, resolveMPI)
}

func resolveNone() (DistInfo, error) {
	return DistInfo{Rank: 0, WorldSize: 1, LocalRank: 0}, nil
}

// resolvePytorch reads the variables exported by torchrun-style launchers;
// a bare single-process invocation resolves to rank 0 of world 1.
func resolvePytorch() (DistInfo, error) {
	return DistInfo{
		Rank:       general.GetEnvInt(consts.EnvPytorchRank, 0),
		WorldSize:  general.GetEnvInt(consts.EnvPytorchWorldSize, 1),
		LocalRank:  general.GetEnvInt(consts.EnvLocalRank, 0),
		MasterAddr: general.GetEnvString(consts.EnvPytorchMasterAddr, defaultMasterAddr),
		MasterPort: general.GetEnvInt(consts.EnvPytorchMasterPort, defaultMasterPort),
	}, nil
}

func resolveSlurm() (DistInfo, error) {
	return DistInfo{
		Rank:       general.GetEnvInt(consts.EnvSlurmProcID, 0),
		WorldSize:  general.GetEnvInt(consts.EnvSlurmNTasks, 1),
		LocalRank:  general.GetEnvInt(consts.EnvSlurmLocalID, 0),
		MasterAddr: firstSlurmNode(general.GetEnvString(consts.EnvSlurmNodeList, defaultMasterAddr)),
		MasterPort: defaultMasterPort,
	}, nil
}

func resolveMPI() (DistInfo, error) {
	return DistInfo{
		Rank:       general.GetEnvInt(consts.EnvMPIRank, 0),
		WorldSize:  general.GetEnvInt(consts.EnvMPIWorldSize, 1),
		LocalRank:  general.GetEnvInt(consts.EnvMPILocalRank, 0),
		MasterAddr: defaultMasterAddr,
		MasterPort: defaultMasterPort,
	}, nil
}

// firstSlurmNode extracts the first host from a SLURM_NODELIST expression.
// Compressed lists like "node[03-08],gpu[1,4]" resolve to "node03"; the
// full hostlist grammar is owned by slurm itself and isn't reproduced here.
func firstSlurmNode(nodeList string) string {
	open := strings.IndexByte(nodeList, '[')
	if open < 0 {
		if i := strings.IndexByte(nodeList, ','); i >= 0 {
			return nodeList[:i]
		}
		return nodeList
	}

	prefix := nodeList[:open]
	rest := nodeList[open+1:]
	end := strings.IndexAny(rest, ",-]")
	if end < 0 {
		return prefix + rest
	}
	return prefix + rest[:end]
}
