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

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	healthPath  = "/api/v1/health"
	versionPath = "/api/v1/version"
	gpuPath     = "/api/v1/gpus"
	devicePath  = "/api/v1/device"
	envPath     = "/api/v1/env"
	setupPath   = "/api/v1/env/setup"
	distPath    = "/api/v1/dist/init"
	seedPath    = "/api/v1/seed"
	modelPath   = "/api/v1/models"
	datasetPath = "/api/v1/datasets"
	trainPath   = "/api/v1/train"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPClient talks JSON over HTTP to a framework sidecar exposing the
// training API. Train requests run without a client-side timeout since the
// call blocks for the whole training loop; everything else uses a short
// per-request timeout.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
		timeout:  defaultRequestTimeout,
	}
}

// WithTimeout overrides the per-request timeout; zero restores the
// default. Train is unaffected either way.
func (c *HTTPClient) WithTimeout(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c.timeout = timeout
	return c
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.get(ctx, healthPath, nil)
}

func (c *HTTPClient) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, versionPath, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

func (c *HTTPClient) GPUAvailable(ctx context.Context) (bool, error) {
	var resp struct {
		Available bool `json:"available"`
		Count     int  `json:"count"`
	}
	if err := c.get(ctx, gpuPath, &resp); err != nil {
		return false, err
	}
	return resp.Available, nil
}

func (c *HTTPClient) AutoSelectDevice(ctx context.Context) (string, error) {
	var resp struct {
		Device string `json:"device"`
	}
	if err := c.get(ctx, devicePath, &resp); err != nil {
		return "", err
	}
	return resp.Device, nil
}

func (c *HTTPClient) CollectEnv(ctx context.Context) (map[string]string, error) {
	env := map[string]string{}
	if err := c.get(ctx, envPath, &env); err != nil {
		return nil, err
	}
	return env, nil
}

func (c *HTTPClient) SetupEnvironment(ctx context.Context, tuning EnvTuning) error {
	return c.post(ctx, setupPath, tuning, nil, c.timeout)
}

func (c *HTTPClient) InitProcessGroup(ctx context.Context, spec ProcessGroupSpec) (int, error) {
	var resp struct {
		WorldSize int `json:"world_size"`
	}
	if err := c.post(ctx, distPath, spec, &resp, c.timeout); err != nil {
		return 0, err
	}
	return resp.WorldSize, nil
}

func (c *HTTPClient) InitRandomSeed(ctx context.Context, spec SeedSpec) (int64, error) {
	var resp struct {
		Seed int64 `json:"seed"`
	}
	if err := c.post(ctx, seedPath, spec, &resp, c.timeout); err != nil {
		return 0, err
	}
	return resp.Seed, nil
}

func (c *HTTPClient) BuildModel(ctx context.Context, spec map[string]interface{}) (ModelHandle, error) {
	var handle ModelHandle
	if err := c.post(ctx, modelPath, spec, &handle, c.timeout); err != nil {
		return ModelHandle{}, err
	}
	return handle, nil
}

func (c *HTTPClient) BuildDataset(ctx context.Context, spec map[string]interface{}) (DatasetHandle, error) {
	var handle DatasetHandle
	if err := c.post(ctx, datasetPath, spec, &handle, c.timeout); err != nil {
		return DatasetHandle{}, err
	}
	return handle, nil
}

func (c *HTTPClient) Train(ctx context.Context, req TrainRequest) error {
	// no timeout: the request blocks until the training loop finishes
	return c.post(ctx, trainPath, req, nil, 0)
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return errors.Wrapf(err, "build request for %s", path)
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "marshal request for %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrapf(err, "build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode response of %s", req.URL.Path)
	}
	return nil
}
