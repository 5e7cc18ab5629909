// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"log/slog"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultEndBlocks is the number of zero blocks written after the last member.
const DefaultEndBlocks = 2

// An Option configures an archive operation.
type Option func(*options)

type options struct {
	ids       *Identity
	endBlocks int
	dir       string
	patterns  []string
	log       *slog.Logger
	strict    bool
}

var systemIdentity = sync.OnceValue(SystemIdentity)

func newOptions(opts []Option) (*options, error) {
	o := &options{
		endBlocks: DefaultEndBlocks,
		dir:       ".",
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.ids == nil {
		o.ids = systemIdentity()
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	for _, p := range o.patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, ErrBadPattern.New(p)
		}
	}
	return o, nil
}

// WithIdentity resolves owner and group names through ids.
func WithIdentity(ids *Identity) Option {
	return func(o *options) { o.ids = ids }
}

// WithNumericIDs stores owner and group ids as decimal text instead of names.
func WithNumericIDs() Option {
	return func(o *options) { o.ids = NumericIdentity() }
}

// WithEndMarker sets how many zero blocks terminate the archive.
// One block is the least a scanner needs; two is what other tar readers expect.
func WithEndMarker(blocks int) Option {
	return func(o *options) { o.endBlocks = max(blocks, 1) }
}

// WithDir sets the root that extracted members are written beneath.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithMatch restricts listing and extraction to members matching any of the
// doublestar patterns. With no patterns every member matches.
func WithMatch(patterns ...string) Option {
	return func(o *options) { o.patterns = append(o.patterns, patterns...) }
}

// WithLogger sends progress and warnings to l instead of slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStrictSize fails a write when a source file yields a different number
// of bytes than it had when its header was encoded.
func WithStrictSize() Option {
	return func(o *options) { o.strict = true }
}

func (o *options) endMarkerSize() int64 {
	return int64(o.endBlocks) * BlockSize
}

// matches reports whether name is selected by the configured patterns.
func (o *options) matches(name string) bool {
	if len(o.patterns) == 0 {
		return true
	}
	for _, p := range o.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
