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

package rewriter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/tuneconfig"
	"github.com/mltune/mltune-core/pkg/util/general"
)

const (
	TypeInstantiate = "instantiate"
	TypeMerge       = "merge"
	TypeDump        = "dump"
	TypePath        = "path"
	TypeResume      = "resume"
	TypeEnv         = "env"
)

func init() {
	RegisterRewriterInitializer(TypeInstantiate, newInstantiate)
	RegisterRewriterInitializer(TypeMerge, newMerge)
	RegisterRewriterInitializer(TypeDump, newDump)
	RegisterRewriterInitializer(TypePath, newPath)
	RegisterRewriterInitializer(TypeResume, newResume)
	RegisterRewriterInitializer(TypeEnv, newEnv)
}

func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return def
}

// instantiate loads the config file referenced by a positional argument
// into the context so later rewriters can mutate it.
type instantiate struct {
	argIdx int
}

func newInstantiate(args map[string]interface{}) (Rewriter, error) {
	return &instantiate{argIdx: intArg(args, "arg_idx", 0)}, nil
}

func (r *instantiate) Rewrite(ctx *Context) (*Context, error) {
	if r.argIdx >= len(ctx.Args) {
		return nil, errors.Errorf("argument index %d out of range, %d args present", r.argIdx, len(ctx.Args))
	}
	cfg, err := tuneconfig.FromFile(ctx.Args[r.argIdx])
	if err != nil {
		return nil, err
	}
	ctx.Cfg = cfg
	return ctx, nil
}

// merge injects the trial hyperparameter assignment into the instantiated
// config, optionally below a dotted key prefix.
type merge struct {
	prefix string
}

func newMerge(args map[string]interface{}) (Rewriter, error) {
	return &merge{prefix: stringArg(args, "prefix", "")}, nil
}

func (r *merge) Rewrite(ctx *Context) (*Context, error) {
	if ctx.Cfg == nil {
		return nil, errors.New("merge requires an instantiated config")
	}
	for key, value := range ctx.Trial.Params {
		if r.prefix != "" {
			key = r.prefix + "." + key
		}
		ctx.Cfg.Set(key, value)
	}
	return ctx, nil
}

// dump persists the rewritten config to a trial-scoped file and substitutes
// the new path into the argument list so the task loads the mutated config.
type dump struct {
	dir    string
	argIdx int
}

func newDump(args map[string]interface{}) (Rewriter, error) {
	return &dump{
		dir:    stringArg(args, "dir", os.TempDir()),
		argIdx: intArg(args, "arg_idx", 0),
	}, nil
}

func (r *dump) Rewrite(ctx *Context) (*Context, error) {
	if ctx.Cfg == nil {
		return nil, errors.New("dump requires an instantiated config")
	}
	if r.argIdx >= len(ctx.Args) {
		return nil, errors.Errorf("argument index %d out of range, %d args present", r.argIdx, len(ctx.Args))
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s_%s", ctx.Trial.ShortID(), filepath.Base(ctx.Args[r.argIdx])))
	if err := ctx.Cfg.Dump(path); err != nil {
		return nil, err
	}
	ctx.Args[r.argIdx] = path
	return ctx, nil
}

// path suffixes the work-dir argument with the trial ID so concurrent
// trials never share artifact directories.
type pathRewriter struct {
	flag string
}

func newPath(args map[string]interface{}) (Rewriter, error) {
	return &pathRewriter{flag: stringArg(args, "flag", "--work-dir")}, nil
}

func (r *pathRewriter) Rewrite(ctx *Context) (*Context, error) {
	for i, arg := range ctx.Args {
		if arg == r.flag && i+1 < len(ctx.Args) {
			ctx.Args[i+1] = filepath.Join(ctx.Args[i+1], ctx.Trial.ShortID())
			return ctx, nil
		}
		if strings.HasPrefix(arg, r.flag+"=") {
			ctx.Args[i] = r.flag + "=" + filepath.Join(strings.TrimPrefix(arg, r.flag+"="), ctx.Trial.ShortID())
			return ctx, nil
		}
	}
	return ctx, nil
}

// resume points the resume flag at the most recent checkpoint below the
// context checkpoint dir; a missing dir or an empty one is a no-op so fresh
// trials start from scratch.
type resume struct {
	flag string
}

func newResume(args map[string]interface{}) (Rewriter, error) {
	return &resume{flag: stringArg(args, "flag", "--resume-from")}, nil
}

func (r *resume) Rewrite(ctx *Context) (*Context, error) {
	if ctx.CheckpointDir == "" || !general.IsPathExists(ctx.CheckpointDir) {
		return ctx, nil
	}

	ckpt, err := latestCheckpoint(ctx.CheckpointDir)
	if err != nil {
		return nil, err
	}
	if ckpt == "" {
		return ctx, nil
	}
	ctx.Args = append(ctx.Args, r.flag, ckpt)
	return ctx, nil
}

// env exports the configured key/values into the process environment; the
// writes are irreversible for the duration of the process.
type env struct {
	vars map[string]string
}

func newEnv(args map[string]interface{}) (Rewriter, error) {
	vars := make(map[string]string, len(args))
	for k, v := range args {
		vars[k] = fmt.Sprintf("%v", v)
	}
	return &env{vars: vars}, nil
}

func (r *env) Rewrite(ctx *Context) (*Context, error) {
	for k, v := range r.vars {
		if err := os.Setenv(k, v); err != nil {
			return nil, errors.Wrapf(err, "set env %s", k)
		}
	}
	return ctx, nil
}

// latestCheckpoint prefers the framework's latest symlink and falls back to
// the lexically greatest checkpoint file (epoch numbers sort correctly when
// zero padded; ties are acceptable here since the framework rewrites
// latest on every save).
func latestCheckpoint(dir string) (string, error) {
	latest := filepath.Join(dir, consts.LatestCheckpoint)
	if general.IsPathExists(latest) {
		return latest, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, consts.CheckpointFileGlob))
	if err != nil {
		return "", errors.Wrapf(err, "scan checkpoints in %s", dir)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
