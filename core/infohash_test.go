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
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInfoHashFromBytes(t *testing.T) {
	require := require.New(t)

	info := []byte("d6:lengthi100e4:name5:fooeee")
	want := sha1.Sum(info)

	h := NewInfoHashFromBytes(info)
	require.Equal(want[:], h.Bytes())
	require.Len(h.Bytes(), 20)
}

func TestInfoHashHexAndString(t *testing.T) {
	require := require.New(t)

	h := NewInfoHashFromBytes([]byte("some info dict"))
	require.Equal(h.Hex(), h.String())
	require.Len(h.Hex(), 40)
}

func TestInfoHashDeterministic(t *testing.T) {
	require := require.New(t)

	info := []byte("same info dict every time")
	require.Equal(NewInfoHashFromBytes(info), NewInfoHashFromBytes(info))
	require.NotEqual(NewInfoHashFromBytes(info), NewInfoHashFromBytes([]byte("different")))
}
