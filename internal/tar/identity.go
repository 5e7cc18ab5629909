// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"hash/maphash"
	"log/slog"
	"os/user"
	"strconv"
	"sync"

	"github.com/dgryski/go-tinylfu"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrLookupUnavailable may be returned by a LookupFunc when it cannot
// consult its database at all. The id is then recorded as decimal text.
var ErrLookupUnavailable = errors.NewKind("tar: %s lookup unavailable")

// A LookupFunc resolves a numeric owner or group id to its name.
type LookupFunc func(id int) (string, error)

// Identity resolves owner and group ids to the names stored in headers.
// Results are cached. A nil Identity, or one with nil funcs, records ids as decimal text.
// An Identity is safe for concurrent use by multiple goroutines.
type Identity struct {
	User  LookupFunc
	Group LookupFunc

	mu    sync.Mutex
	cache *tinylfu.T[idKey, string]
}

type idKey struct {
	group bool
	id    int
}

const identityCacheSize = 256

// NewIdentity returns an Identity backed by the given funcs, either of which may be nil.
func NewIdentity(user, group LookupFunc) *Identity {
	return &Identity{
		User:  user,
		Group: group,
		cache: tinylfu.New[idKey, string](identityCacheSize, identityCacheSize*10, idHasher),
	}
}

// SystemIdentity consults the operating system's user and group databases.
func SystemIdentity() *Identity {
	return NewIdentity(lookupUser, lookupGroup)
}

// NumericIdentity never looks names up.
func NumericIdentity() *Identity {
	return NewIdentity(nil, nil)
}

func (ids *Identity) UserName(uid int) (string, error)  { return ids.name(idKey{false, uid}) }
func (ids *Identity) GroupName(gid int) (string, error) { return ids.name(idKey{true, gid}) }

func (ids *Identity) name(k idKey) (string, error) {
	kind, fn := "user", (LookupFunc)(nil)
	if ids != nil {
		fn = ids.User
		if k.group {
			kind, fn = "group", ids.Group
		}
	}
	if fn == nil {
		return strconv.Itoa(k.id), nil
	}

	ids.mu.Lock()
	defer ids.mu.Unlock()
	if ids.cache != nil {
		if got, ok := ids.cache.Get(k); ok {
			return got, nil
		}
	}

	name, err := fn(k.id)
	if ErrLookupUnavailable.Is(err) {
		slog.Debug("identityFallback", "kind", kind, "id", k.id, "err", err)
		name, err = strconv.Itoa(k.id), nil
	}
	if err != nil {
		return "", ErrIdentityLookup.Wrap(err, kind, k.id)
	}

	if ids.cache != nil {
		ids.cache.Add(k, name)
	}
	return name, nil
}

var seed = maphash.MakeSeed()

func idHasher(k idKey) uint64 {
	return maphash.Comparable(seed, k)
}

func lookupUser(uid int) (string, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	switch err.(type) {
	case nil:
		return u.Username, nil
	case user.UnknownUserIdError:
		return "", err
	default:
		return "", ErrLookupUnavailable.Wrap(err, "user")
	}
}

func lookupGroup(gid int) (string, error) {
	g, err := user.LookupGroupId(strconv.Itoa(gid))
	switch err.(type) {
	case nil:
		return g.Name, nil
	case user.UnknownGroupIdError:
		return "", err
	default:
		return "", ErrLookupUnavailable.Wrap(err, "group")
	}
}
