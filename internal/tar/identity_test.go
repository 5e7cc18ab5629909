// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityLookup(t *testing.T) {
	require := require.New(t)
	calls := 0
	ids := NewIdentity(
		func(id int) (string, error) {
			calls++
			if id == 1000 {
				return "alice", nil
			}
			return "", fmt.Errorf("no user %d", id)
		},
		func(id int) (string, error) {
			return "", ErrLookupUnavailable.New("group")
		},
	)

	for range 3 {
		name, err := ids.UserName(1000)
		require.NoError(err)
		require.Equal("alice", name)
	}
	require.Equal(1, calls, "names are cached")

	_, err := ids.UserName(4242)
	require.True(ErrIdentityLookup.Is(err), "got %v", err)

	name, err := ids.GroupName(20)
	require.NoError(err)
	require.Equal("20", name, "unavailable database falls back to the number")
}

func TestNumericIdentity(t *testing.T) {
	require := require.New(t)
	for _, ids := range []*Identity{nil, NumericIdentity(), NewIdentity(nil, nil)} {
		u, err := ids.UserName(501)
		require.NoError(err)
		g, err := ids.GroupName(20)
		require.NoError(err)
		require.Equal("501", u)
		require.Equal("20", g)
	}
}

func TestIdentityInHeader(t *testing.T) {
	require := require.New(t)
	t.Chdir(t.TempDir())
	require.NoError(writeFile("f", "x"))

	ids := NewIdentity(
		func(int) (string, error) { return "owner", nil },
		func(int) (string, error) { return "crew", nil },
	)
	blk, _, err := EncodeFile("f", ids)
	require.NoError(err)
	hdr, err := Decode(blk)
	require.NoError(err)
	require.Equal("owner", hdr.Uname)
	require.Equal("crew", hdr.Gname)

	failing := NewIdentity(func(int) (string, error) { return "", fmt.Errorf("nobody") }, nil)
	_, _, err = EncodeFile("f", failing)
	require.True(ErrIdentityLookup.Is(err), "got %v", err)
}
