// SPDX-License-Identifier: EPL-2.0

package sound

import "fmt"

// pool is a fixed set of channels of one kind and the source bound to each.
type pool[C Channel] struct {
	kind     ChannelKind
	channels []C
	owners   []*Source
	next     int
}

func newPool[C Channel](kind ChannelKind, n int, create func() C) *pool[C] {
	p := &pool[C]{
		kind:     kind,
		channels: make([]C, n),
		owners:   make([]*Source, n),
	}
	for i := range p.channels {
		p.channels[i] = create()
	}
	return p
}

// pick chooses a channel for a new binding: a free one first, then one
// whose source is not playing, then one held by a non-priority source.
// A playing priority source is never displaced. The displaced source, if
// any, is returned so the caller can unbind it.
func (p *pool[C]) pick() (int, *Source, error) {
	n := len(p.channels)
	if n == 0 {
		return 0, nil, fmt.Errorf("%w: no %s channels configured", ErrBackendAllocation, p.kind)
	}

	steal := func(ok func(s *Source) bool) (int, bool) {
		for j := range n {
			i := (p.next + j) % n
			if ok(p.owners[i]) {
				p.next = (i + 1) % n
				return i, true
			}
		}
		return 0, false
	}

	rules := []func(s *Source) bool{
		func(s *Source) bool { return s == nil },
		func(s *Source) bool { return !s.Playing() },
		func(s *Source) bool { return !s.priority },
	}
	for _, ok := range rules {
		if i, found := steal(ok); found {
			return i, p.owners[i], nil
		}
	}
	return 0, nil, fmt.Errorf("%w: all %d %s channels hold playing priority sources", ErrBackendAllocation, n, p.kind)
}

func (p *pool[C]) indexOf(s *Source) int {
	for i, o := range p.owners {
		if o == s {
			return i
		}
	}
	return -1
}

// release frees the slot held by s.
func (p *pool[C]) release(s *Source) {
	if i := p.indexOf(s); i >= 0 {
		p.owners[i] = nil
	}
}

func (p *pool[C]) bound() int {
	n := 0
	for _, o := range p.owners {
		if o != nil {
			n++
		}
	}
	return n
}
