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

package tuneconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want interface{}
	}{
		{name: "int", raw: "42", want: 42},
		{name: "negative int", raw: "-7", want: -7},
		{name: "float", raw: "0.001", want: 0.001},
		{name: "bool true", raw: "True", want: true},
		{name: "bool false", raw: "false", want: false},
		{name: "none", raw: "None", want: nil},
		{name: "string", raw: "adam", want: "adam"},
		{name: "quoted string", raw: `"0.1x"`, want: "0.1x"},
		{name: "bare list", raw: "a,b", want: []interface{}{"a", "b"}},
		{name: "bracketed list", raw: "[1,2,3]", want: []interface{}{1, 2, 3}},
		{name: "tuple", raw: "(0.9,0.999)", want: []interface{}{0.9, 0.999}},
		{
			name: "nested tuples",
			raw:  "[(32,32),(64,64)]",
			want: []interface{}{
				[]interface{}{32, 32},
				[]interface{}{64, 64},
			},
		},
		{
			name: "mixed nested",
			raw:  "[flip,(0.5,1.0),None]",
			want: []interface{}{"flip", []interface{}{0.5, 1.0}, nil},
		},
		{name: "empty list", raw: "[]", want: []interface{}{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseValue(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValueUnbalanced(t *testing.T) {
	t.Parallel()

	_, err := ParseValue("[(1,2]")
	assert.Error(t, err)
}

func TestParseCfgOptions(t *testing.T) {
	t.Parallel()

	got, err := ParseCfgOptions([]string{
		"optimizer.lr=0.02",
		"model.depth=50",
		"data.train.pipeline=[crop,flip]",
		"evaluation.metric=accuracy",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"optimizer.lr":        0.02,
		"model.depth":         50,
		"data.train.pipeline": []interface{}{"crop", "flip"},
		"evaluation.metric":   "accuracy",
	}, got)
}

func TestParseCfgOptionsInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseCfgOptions([]string{"no-equals-sign"})
	assert.Error(t, err)

	_, err = ParseCfgOptions([]string{"=value"})
	assert.Error(t, err)
}
