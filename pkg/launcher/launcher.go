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

// Package launcher resolves distributed rank information for the fixed set
// of process bootstrap mechanisms. Each launcher reads its own environment
// variables once and the result is handed to process-group initialization
// explicitly; nothing here mutates the environment.
package launcher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type Type string

const (
	TypeNone    Type = "none"
	TypePytorch Type = "pytorch"
	TypeSlurm   Type = "slurm"
	TypeMPI     Type = "mpi"
)

// DistInfo is the resolved distributed topology of the current process.
type DistInfo struct {
	Rank       int
	WorldSize  int
	LocalRank  int
	MasterAddr string
	MasterPort int
}

// Distributed reports whether the launcher implies a process group.
func (t Type) Distributed() bool {
	return t != TypeNone
}

// Resolver derives DistInfo from the launcher-specific environment.
type Resolver func() (DistInfo, error)

var resolvers sync.Map

// RegisterResolver is used to register launcher resolvers; built-in
// launchers register themselves in package init, tests may override.
func RegisterResolver(t Type, resolver Resolver) {
	resolvers.Store(t, resolver)
}

// Parse validates a launcher selector against the known enumeration.
func Parse(s string) (Type, error) {
	t := Type(s)
	if _, ok := resolvers.Load(t); !ok {
		return "", errors.Errorf("unknown launcher %q, expected one of %v", s, knownTypes())
	}
	return t, nil
}

// Resolve returns the distributed topology for the given launcher.
func Resolve(t Type) (DistInfo, error) {
	v, ok := resolvers.Load(t)
	if !ok {
		return DistInfo{}, errors.Errorf("unknown launcher %q, expected one of %v", t, knownTypes())
	}
	info, err := v.(Resolver)()
	if err != nil {
		return DistInfo{}, errors.Wrapf(err, "resolve %s launcher", t)
	}
	if info.WorldSize <= 0 {
		return DistInfo{}, fmt.Errorf("%s launcher resolved invalid world size %d", t, info.WorldSize)
	}
	if info.Rank < 0 || info.Rank >= info.WorldSize {
		return DistInfo{}, fmt.Errorf("%s launcher resolved rank %d outside world size %d", t, info.Rank, info.WorldSize)
	}
	return info, nil
}

func knownTypes() []string {
	var known []string
	resolvers.Range(func(key, _ interface{}) bool {
		known = append(known, string(key.(Type)))
		return true
	})
	sort.Strings(known)
	return known
}
