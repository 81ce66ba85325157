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

package trial

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/util/general"
)

// Store persists trial results as JSON files under an experiment root and
// aggregates them for reporting. The external scheduler owns retries; the
// store only records what happened.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Save writes the result into the trial work dir; the write happens once
// per trial, after the training call returns.
func (s *Store) Save(result Result) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal trial result")
	}

	dir := result.WorkDir
	if dir == "" {
		dir = filepath.Join(s.root, result.TrialID)
	}
	if err := general.EnsureDirectory(dir); err != nil {
		return errors.Wrapf(err, "ensure result dir %s", dir)
	}
	return os.WriteFile(filepath.Join(dir, consts.TrialResultFile), raw, 0o644)
}

// List loads every persisted result below the experiment root.
func (s *Store) List() ([]Result, error) {
	var results []Result
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != consts.TrialResultFile {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var result Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "walk experiment root %s", s.root)
	}
	return results, nil
}

// Summary aggregates one metric across all succeeded trials.
type Summary struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
}

// Summarize computes the distribution of metric over the stored results.
// Trials that failed or never reported the metric count towards Failed.
func (s *Store) Summarize(metric string) (Summary, error) {
	results, err := s.List()
	if err != nil {
		return Summary{}, err
	}

	values := lo.FilterMap(results, func(r Result, _ int) (float64, bool) {
		if !r.Succeeded() {
			return 0, false
		}
		v, ok := r.Metrics[metric]
		return v, ok
	})

	summary := Summary{
		Metric: metric,
		Count:  len(values),
		Failed: len(results) - len(values),
	}
	if len(values) == 0 {
		return summary, nil
	}

	data := stats.Float64Data(values)
	if summary.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, err
	}
	if summary.Min, err = stats.Min(data); err != nil {
		return Summary{}, err
	}
	if summary.Max, err = stats.Max(data); err != nil {
		return Summary{}, err
	}
	if summary.P50, err = stats.Median(data); err != nil {
		return Summary{}, err
	}
	if summary.P90, err = stats.Percentile(data, 90); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
