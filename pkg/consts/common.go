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

package consts

// MLTuneComponent defines the component names running in this repo.
type MLTuneComponent string

const (
	MLTuneComponentRunner MLTuneComponent = "mltune-runner"
	MLTuneComponentReport MLTuneComponent = "mltune-report"
)

// Environment variables consumed or exported for the wrapped training
// framework. EnvLocalRank is only exported when absent so that an outer
// launcher always wins.
const (
	EnvLocalRank = "LOCAL_RANK"

	EnvPytorchRank       = "RANK"
	EnvPytorchWorldSize  = "WORLD_SIZE"
	EnvPytorchMasterAddr = "MASTER_ADDR"
	EnvPytorchMasterPort = "MASTER_PORT"

	EnvSlurmProcID   = "SLURM_PROCID"
	EnvSlurmNTasks   = "SLURM_NTASKS"
	EnvSlurmLocalID  = "SLURM_LOCALID"
	EnvSlurmNodeList = "SLURM_NODELIST"

	EnvMPIRank      = "OMPI_COMM_WORLD_RANK"
	EnvMPIWorldSize = "OMPI_COMM_WORLD_SIZE"
	EnvMPILocalRank = "OMPI_COMM_WORLD_LOCAL_RANK"
)

// default layout for trial artifacts under the experiment root
const (
	WorkDirsParent     = "work_dirs"
	TrialResultFile    = "result.json"
	CheckpointFileGlob = "*.pth"
	LatestCheckpoint   = "latest.pth"
)
