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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

type FileWatcherInfo struct {
	// if Filename is empty, all file events under every watched path are
	// reported; otherwise only events for this specific file name
	Filename string
	Path     []string
	Op       fsnotify.Op
}

// RegisterFileEventWatcher inotifies the given file and reports the changed
// file names to the caller through the returned channel
func RegisterFileEventWatcher(stop <-chan struct{}, fileWatcherInfo FileWatcherInfo) (<-chan string, error) {
	watcherCh := make(chan string)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new fsNotify watcher failed: %w", err)
	}

	go func() {
		defer close(watcherCh)
		defer func() {
			if err := recover(); err != nil {
				klog.Errorf("RegisterFileEventWatcher panic: %v", err)
			}
		}()

		defer func() {
			if err := watcher.Close(); err != nil {
				klog.Errorf("failed close watcher: %v", err)
			}
		}()

		for _, watcherInfoPath := range fileWatcherInfo.Path {
			if err := watcher.Add(watcherInfoPath); err != nil {
				klog.Errorf("failed add event path %s: %s", watcherInfoPath, err)
				return
			}
		}

		for {
			select {
			case event := <-watcher.Events:
				filename := filepath.Base(event.Name)
				if (fileWatcherInfo.Filename == "" || filename == fileWatcherInfo.Filename) &&
					(event.Op&fileWatcherInfo.Op) > 0 {
					klog.V(4).Infof("fsNotify watcher notify %s", event)
					watcherCh <- event.Name
				}
			case err := <-watcher.Errors:
				klog.Warningf("%v watcher error: %v", fileWatcherInfo, err)
			case <-stop:
				klog.Infof("shutting down event watcher %v", fileWatcherInfo)
				return
			}
		}
	}()

	return watcherCh, nil
}

// EnsureDirectory creates dir and any missing parents.
func EnsureDirectory(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		// MkdirAll returns nil if directory already exists.
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// IsPathExists is to check this path whether exists
func IsPathExists(path string) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	return true
}

// DumpFileString writes content to path, creating parent directories as
// needed; the write is not atomic.
func DumpFileString(path string, content string) error {
	if err := EnsureDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// ReadFileIntoLines reads contents from the given file, and parses them into
// one string per line; empty trailing lines are skipped.
func ReadFileIntoLines(filepath string) ([]string, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("read file failed with error: %v", err)
	}

	var contents []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			contents = append(contents, line)
		}
	}
	return contents, nil
}

// FileStem returns the base name of path without its extension, used to
// derive default work directories from config file names.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
