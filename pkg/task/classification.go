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

package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/mltune/mltune-core/pkg/backend"
	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/launcher"
	"github.com/mltune/mltune-core/pkg/tuneconfig"
	"github.com/mltune/mltune-core/pkg/util/general"
)

const ClassificationTaskName = "classification"

// version of the wrapped classification framework this wrapper tracks
const classificationFrameworkVersion = "v0.23.2"

func init() {
	RegisterTaskInitializer(ClassificationTaskName, func(base *BaseTask) (Task, error) {
		return &Classification{BaseTask: base}, nil
	})
}

// ClassificationArgs is the structured argument record of one trial
// invocation of the classification training entry point.
type ClassificationArgs struct {
	Config     string
	WorkDir    string
	ResumeFrom string
	NoValidate bool

	// legacy device-selection flags, collapsed by ResolveDeviceFlags
	Device string
	GPUs   int
	GPUIDs []int
	GPUID  int
	// gpusSet/gpuIDsSet record whether the deprecated flags were supplied
	gpusSet   bool
	gpuIDsSet bool

	IPUReplicas    int
	ipuReplicasSet bool

	Seed          int64
	seedSet       bool
	DiffSeed      bool
	Deterministic bool

	CfgOptions []string
	Launcher   launcher.Type
	LocalRank  int
}

// Classification wraps the training entry point of an image classification
// framework so the external scheduler can tune it.
type Classification struct {
	*BaseTask

	args *ClassificationArgs
}

var _ Task = (*Classification)(nil)

// ParseArgs translates the flat token list into the argument record. The
// legacy device flags are mutually exclusive; supplying more than one is a
// parse error. LOCAL_RANK is exported from --local_rank when absent.
func (c *Classification) ParseArgs(taskArgs []string) error {
	args := &ClassificationArgs{}

	fs := pflag.NewFlagSet(ClassificationTaskName, pflag.ContinueOnError)
	fs.StringVar(&args.WorkDir, "work-dir", "", "the dir to save logs and models")
	fs.StringVar(&args.ResumeFrom, "resume-from", "", "the checkpoint file to resume from")
	fs.BoolVar(&args.NoValidate, "no-validate", false, "whether not to evaluate the checkpoint during training")
	fs.StringVar(&args.Device, "device", "", "device used for training. (Deprecated)")
	fs.IntVar(&args.GPUs, "gpus", 0, "(Deprecated, please use --gpu-id) number of gpus to use (only applicable to non-distributed training)")
	fs.IntSliceVar(&args.GPUIDs, "gpu-ids", nil, "(Deprecated, please use --gpu-id) ids of gpus to use (only applicable to non-distributed training)")
	fs.IntVar(&args.GPUID, "gpu-id", 0, "id of gpu to use (only applicable to non-distributed training)")
	fs.IntVar(&args.IPUReplicas, "ipu-replicas", 0, "num of ipu replicas to use")
	fs.Int64Var(&args.Seed, "seed", 0, "random seed")
	fs.BoolVar(&args.DiffSeed, "diff-seed", false, "whether or not set different seeds for different ranks")
	fs.BoolVar(&args.Deterministic, "deterministic", false, "whether to set deterministic options for CUDNN backend")
	fs.StringArrayVar(&args.CfgOptions, "cfg-options", nil, "override some settings in the used config, the key-value pair in xxx=yyy format will be merged into the config")
	launcherName := fs.String("launcher", string(launcher.TypeNone), "job launcher")
	fs.IntVar(&args.LocalRank, "local_rank", 0, "")

	if err := fs.Parse(taskArgs); err != nil {
		return errors.Wrap(err, "parse task arguments")
	}
	if fs.NArg() != 1 {
		return errors.Errorf("expected exactly one positional config path, got %d", fs.NArg())
	}
	args.Config = fs.Arg(0)

	args.gpusSet = fs.Changed("gpus")
	args.gpuIDsSet = fs.Changed("gpu-ids")
	args.ipuReplicasSet = fs.Changed("ipu-replicas")
	args.seedSet = fs.Changed("seed")

	exclusive := 0
	for _, name := range []string{"device", "gpus", "gpu-ids", "gpu-id"} {
		if fs.Changed(name) {
			exclusive++
		}
	}
	if exclusive > 1 {
		return errors.New("--device, --gpus, --gpu-ids and --gpu-id are mutually exclusive")
	}

	parsed, err := launcher.Parse(*launcherName)
	if err != nil {
		return err
	}
	args.Launcher = parsed

	if _, err := general.SetEnvIfAbsent(consts.EnvLocalRank, localRankString(args.LocalRank)); err != nil {
		return errors.Wrap(err, "export local rank")
	}

	c.args = args
	return nil
}

// ResolveDeviceFlags collapses the legacy device-selection flags into the
// effective single-GPU id list. Deprecation warnings are emitted when the
// legacy forms were supplied; precedence is --gpus > --gpu-ids > --gpu-id.
func ResolveDeviceFlags(args *ClassificationArgs) []int {
	switch {
	case args.gpusSet:
		klog.Warning("`--gpus` is deprecated because we only support single GPU mode in non-distributed training. Use `gpus=1` now.")
		return []int{0}
	case args.gpuIDsSet && len(args.GPUIDs) > 0:
		klog.Warning("`--gpu-ids` is deprecated, please use `--gpu-id`. Because we only support single GPU mode in non-distributed training. Use the first GPU in `gpu_ids` now.")
		return args.GPUIDs[:1]
	default:
		return []int{args.GPUID}
	}
}

// Run executes one training trial with the parsed arguments. Side effects
// are irreversible for the duration of the process: environment writes,
// work-dir creation, config dump and process-group initialization. Errors
// from the framework propagate without retries.
func (c *Classification) Run(ctx context.Context) error {
	if c.args == nil {
		return errors.New("run called before arguments were parsed")
	}
	args := c.args
	client := c.Backend()

	cfg, err := tuneconfig.FromFile(args.Config)
	if err != nil {
		return err
	}
	if len(args.CfgOptions) > 0 {
		overrides, err := tuneconfig.ParseCfgOptions(args.CfgOptions)
		if err != nil {
			return err
		}
		cfg.MergeFromDict(overrides)
	}

	// multi-process and cudnn tuning happens before anything touches the
	// framework state
	cudnnBenchmark, _ := cfg.Get("cudnn_benchmark")
	benchmark, _ := cudnnBenchmark.(bool)
	if err := client.SetupEnvironment(ctx, backend.EnvTuning{
		OMPNumThreads:  1,
		MKLNumThreads:  1,
		CudnnBenchmark: benchmark,
	}); err != nil {
		return errors.Wrap(err, "setup framework environment")
	}

	workDir := resolveWorkDir(args.WorkDir, cfg, args.Config)
	cfg.Set("work_dir", workDir)

	if args.ResumeFrom != "" {
		cfg.Set("resume_from", args.ResumeFrom)
	}

	gpuIDs := ResolveDeviceFlags(args)
	device := args.Device

	if args.ipuReplicasSet {
		cfg.Set("ipu_replicas", args.IPUReplicas)
		device = "ipu"
	}

	// init the distributed env first, the training log depends on the dist info
	distributed := args.Launcher.Distributed()
	distInfo := launcher.DistInfo{Rank: 0, WorldSize: 1}
	if distributed {
		distInfo, err = launcher.Resolve(args.Launcher)
		if err != nil {
			return err
		}
		world, err := client.InitProcessGroup(ctx, backend.ProcessGroupSpec{
			Launcher:   string(args.Launcher),
			Rank:       distInfo.Rank,
			WorldSize:  distInfo.WorldSize,
			LocalRank:  distInfo.LocalRank,
			MasterAddr: distInfo.MasterAddr,
			MasterPort: distInfo.MasterPort,
		})
		if err != nil {
			return errors.Wrap(err, "init distributed process group")
		}
		gpuIDs = gpuIDRange(world)
	}
	cfg.Set("gpu_ids", gpuIDs)

	if err := general.EnsureDirectory(workDir); err != nil {
		return errors.Wrapf(err, "create work dir %s", workDir)
	}
	if err := cfg.Dump(filepath.Join(workDir, filepath.Base(args.Config))); err != nil {
		return errors.Wrap(err, "dump resolved config")
	}

	timestamp := time.Now().Format("20060102_150405")
	logFile := filepath.Join(workDir, timestamp+".log")

	meta := map[string]interface{}{}

	envInfo := general.EnvSnapshot()
	frameworkEnv, err := client.CollectEnv(ctx)
	if err != nil {
		return errors.Wrap(err, "collect framework environment")
	}
	for k, v := range frameworkEnv {
		envInfo[k] = v
	}
	meta["env_info"] = formatEnvInfo(envInfo)

	if device == "" {
		if device, err = client.AutoSelectDevice(ctx); err != nil {
			return errors.Wrap(err, "auto select device")
		}
	}
	cfg.Set("device", device)

	var seedSpec backend.SeedSpec
	seedSpec.Device = device
	seedSpec.Deterministic = args.Deterministic
	if args.seedSet {
		seed := args.Seed
		seedSpec.Seed = &seed
	}
	seed, err := client.InitRandomSeed(ctx, seedSpec)
	if err != nil {
		return errors.Wrap(err, "init random seed")
	}
	if args.DiffSeed {
		seed += int64(distInfo.Rank)
	}
	cfg.Set("seed", seed)
	meta["seed"] = seed

	if err := writeRunLog(logFile, cfg, distributed, seed, args.Deterministic, envInfo); err != nil {
		return errors.Wrap(err, "write run log")
	}

	model, err := client.BuildModel(ctx, cfg.Sub("model"))
	if err != nil {
		return errors.Wrap(err, "build classifier")
	}

	trainSpec := cfg.Sub("data.train")
	train, err := client.BuildDataset(ctx, trainSpec)
	if err != nil {
		return errors.Wrap(err, "build train dataset")
	}
	datasetIDs := []string{train.ID}

	// a two-phase workflow validates with the training augmentation
	// pipeline applied to the validation split
	if workflow, ok := cfg.Get("workflow"); ok {
		if seq, ok := workflow.([]interface{}); ok && len(seq) == 2 {
			valSpec := deepCopyMap(cfg.Sub("data.val"))
			if valSpec != nil && trainSpec != nil {
				valSpec["pipeline"] = trainSpec["pipeline"]
			}
			val, err := client.BuildDataset(ctx, valSpec)
			if err != nil {
				return errors.Wrap(err, "build val dataset")
			}
			datasetIDs = append(datasetIDs, val.ID)
		}
	}

	frameworkVersion, err := client.Version(ctx)
	if err != nil {
		return errors.Wrap(err, "query framework version")
	}
	meta["framework_version"] = frameworkVersion
	meta["config"] = cfg.PrettyText()
	meta["CLASSES"] = train.Classes

	return client.Train(ctx, backend.TrainRequest{
		ModelID:     model.ID,
		DatasetIDs:  datasetIDs,
		ConfigText:  cfg.PrettyText(),
		WorkDir:     workDir,
		Device:      device,
		GPUIDs:      gpuIDs,
		Distributed: distributed,
		Validate:    !args.NoValidate,
		Timestamp:   timestamp,
		Seed:        seed,
		Determinism: args.Deterministic,
		Meta:        meta,
	})
}

// Args exposes the parsed argument record, nil before ParseArgs.
func (c *Classification) Args() *ClassificationArgs {
	return c.args
}

// resolveWorkDir determines the work dir in this priority: CLI > segment
// in file > derived from the config filename.
func resolveWorkDir(cliWorkDir string, cfg *tuneconfig.Config, configPath string) string {
	if cliWorkDir != "" {
		return cliWorkDir
	}
	if cfg.Has("work_dir") {
		return cfg.GetString("work_dir", "")
	}
	return filepath.Join(".", consts.WorkDirsParent, general.FileStem(configPath))
}

func gpuIDRange(worldSize int) []int {
	ids := make([]int, worldSize)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func deepCopyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]interface{}); ok {
			dst[k] = deepCopyMap(nested)
			continue
		}
		dst[k] = v
	}
	return dst
}

func formatEnvInfo(env map[string]string) string {
	lines := make([]string, 0, len(env))
	for k, v := range env {
		lines = append(lines, fmt.Sprintf("%s: %s", k, v))
	}
	return strings.Join(lines, "\n")
}

// writeRunLog persists the trial header: environment, dist mode, seed and
// the resolved config. The wrapped framework appends its own training log
// to the same directory.
func writeRunLog(path string, cfg *tuneconfig.Config, distributed bool, seed int64, deterministic bool, env map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	dashLine := strings.Repeat("-", 60)
	_, err = fmt.Fprintf(f, "Environment info:\n%s\n%s\n%s\nDistributed training: %v\nSet random seed to %d, deterministic: %v\nConfig:\n%s\n",
		dashLine, formatEnvInfo(env), dashLine, distributed, seed, deterministic, cfg.PrettyText())
	return err
}
