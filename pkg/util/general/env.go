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

package general

import (
	"os"
	"runtime"
	"strconv"
)

// SetEnvIfAbsent exports key=value only when key is not already present, and
// reports whether the write happened.
func SetEnvIfAbsent(key, value string) (bool, error) {
	if _, ok := os.LookupEnv(key); ok {
		return false, nil
	}
	return true, os.Setenv(key, value)
}

// GetEnvInt reads key as an integer, falling back to def when the variable
// is unset or malformed.
func GetEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetEnvString reads key, falling back to def when unset.
func GetEnvString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// EnvSnapshot collects basic process environment information attached to
// trial metadata for reproducibility.
func EnvSnapshot() map[string]string {
	hostname, _ := os.Hostname()
	return map[string]string{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"num_cpu":    strconv.Itoa(runtime.NumCPU()),
		"hostname":   hostname,
	}
}
