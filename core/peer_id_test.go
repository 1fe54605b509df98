// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePeerIDHasClientPrefix(t *testing.T) {
	require := require.New(t)

	p, err := GeneratePeerID()
	require.NoError(err)
	require.True(strings.HasPrefix(string(p[:8]), clientID))
}

func TestGeneratePeerIDSuffixIsDigits(t *testing.T) {
	require := require.New(t)

	p, err := GeneratePeerID()
	require.NoError(err)
	suffix := string(p[len(clientID):])
	for _, r := range suffix {
		require.True(r >= '0' && r <= '9', "suffix byte %q is not an ASCII digit", r)
	}
}

func TestGeneratePeerIDIsRandom(t *testing.T) {
	require := require.New(t)

	p1, err := GeneratePeerID()
	require.NoError(err)
	p2, err := GeneratePeerID()
	require.NoError(err)
	require.NotEqual(p1, p2)
}

func TestNewPeerIDErrors(t *testing.T) {
	tests := []struct {
		desc  string
		input string
	}{
		{"empty", ""},
		{"invalid hex", "invalid"},
		{"too short", "beef"},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			_, err := NewPeerID(test.input)
			require.Error(t, err)
		})
	}
}

func TestPeerIDCompare(t *testing.T) {
	require := require.New(t)

	p1, err := GeneratePeerID()
	require.NoError(err)
	p2, err := GeneratePeerID()
	require.NoError(err)

	if p1.String() < p2.String() {
		require.True(p1.LessThan(p2))
	} else if p1.String() > p2.String() {
		require.True(p2.LessThan(p1))
	}
}

func TestNewPeerIDFromBytes(t *testing.T) {
	require := require.New(t)

	p, err := GeneratePeerID()
	require.NoError(err)

	p2, err := NewPeerIDFromBytes(p[:])
	require.NoError(err)
	require.Equal(p, p2)

	_, err = NewPeerIDFromBytes([]byte("too short"))
	require.Error(err)
}
