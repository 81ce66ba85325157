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
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Spec names a rewriter type plus its construction arguments, as declared
// in the rewriters config file.
type Spec struct {
	Type string                 `yaml:"type"`
	Args map[string]interface{} `yaml:",inline"`
}

// InitFunc constructs a rewriter from its spec arguments.
type InitFunc func(args map[string]interface{}) (Rewriter, error)

var rewriterInitializers sync.Map

// RegisterRewriterInitializer is used to register user-defined rewriter
// init functions; built-ins register themselves in package init.
func RegisterRewriterInitializer(typeName string, initFunc InitFunc) {
	rewriterInitializers.Store(typeName, initFunc)
}

// BuildRewriter resolves a spec against the registry.
func BuildRewriter(spec Spec) (Rewriter, error) {
	v, ok := rewriterInitializers.Load(spec.Type)
	if !ok {
		return nil, errors.Errorf("unknown rewriter type %q, expected one of %v", spec.Type, knownRewriters())
	}
	r, err := v.(InitFunc)(spec.Args)
	if err != nil {
		return nil, errors.Wrapf(err, "build rewriter %q", spec.Type)
	}
	return r, nil
}

// BuildRewriters builds the whole chain, preserving declared order.
func BuildRewriters(specs []Spec) ([]Rewriter, error) {
	rewriters := make([]Rewriter, 0, len(specs))
	for _, spec := range specs {
		r, err := BuildRewriter(spec)
		if err != nil {
			return nil, err
		}
		rewriters = append(rewriters, r)
	}
	return rewriters, nil
}

// LoadSpecs reads a YAML list of rewriter specs.
func LoadSpecs(path string) ([]Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read rewriters config %s", path)
	}
	var specs []Spec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, errors.Wrapf(err, "parse rewriters config %s", path)
	}
	return specs, nil
}

func knownRewriters() []string {
	var known []string
	rewriterInitializers.Range(func(key, _ interface{}) bool {
		known = append(known, key.(string))
		return true
	})
	sort.Strings(known)
	return known
}
