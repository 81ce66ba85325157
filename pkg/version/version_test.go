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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersionInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		want    Info
	}{
		{
			name:    "plain numeric",
			version: "1.2.3",
			want:    Info{1, 2, 3},
		},
		{
			name:    "release candidate",
			version: "1.2.0rc1",
			want:    Info{1, 2, 0, "rc1"},
		},
		{
			name:    "single segment",
			version: "7",
			want:    Info{7},
		},
		{
			name:    "unknown segment dropped",
			version: "1.beta2.3",
			want:    Info{1, 3},
		},
		{
			name:    "rc with malformed prefix dropped",
			version: "1.xrc2y.0",
			want:    Info{1, 0},
		},
		{
			name:    "empty string",
			version: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseVersionInfo(tt.version))
		})
	}
}

func TestLess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "patch ordering", a: "1.2.3", b: "1.2.4", want: true},
		{name: "equal", a: "1.2.3", b: "1.2.3", want: false},
		{name: "rc before release", a: "1.2.0rc1", b: "1.2.0", want: true},
		{name: "release after rc", a: "1.2.0", b: "1.2.0rc1", want: false},
		{name: "rc ordering", a: "1.2.0rc1", b: "1.2.0rc2", want: true},
		{name: "major wins", a: "2.0.0", b: "1.9.9", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Less(ParseVersionInfo(tt.a), ParseVersionInfo(tt.b)))
		})
	}
}

func TestVersionInfoMatchesVersion(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, VersionInfo)
	assert.Equal(t, ParseVersionInfo(Version), VersionInfo)
}
