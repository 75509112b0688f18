// Package gatewaytest provides an in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"imbridge/internal/gateway"
	"imbridge/internal/model"
)

// Fake answers lookups from maps. Errs overrides a lookup for a given key:
// keys are "member:<group>:<uid>", "user:<uid>", "seq:<seq>", "cached:<group>:<uid>",
// "quit:<group>" and "clear".
type Fake struct {
	mu sync.Mutex

	Members  map[string]string // "<group>:<uid>" -> uin
	Users    map[string]string // uid -> uin
	Messages map[string][]model.RawMessage
	Cached   map[string]model.GroupMember // "<group>:<uid>"
	Errs     map[string]error

	QuitCalls  []string
	ClearCalls int
}

var _ gateway.Gateway = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Members:  map[string]string{},
		Users:    map[string]string{},
		Messages: map[string][]model.RawMessage{},
		Cached:   map[string]model.GroupMember{},
		Errs:     map[string]error{},
	}
}

func (f *Fake) err(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Errs[key]
}

func (f *Fake) GroupMemberUin(_ context.Context, groupCode, uid string) (string, error) {
	if err := f.err("member:" + groupCode + ":" + uid); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	uin, ok := f.Members[groupCode+":"+uid]
	if !ok {
		return "", gateway.ErrNotFound
	}
	return uin, nil
}

func (f *Fake) UserUin(_ context.Context, uid string) (string, error) {
	if err := f.err("user:" + uid); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	uin, ok := f.Users[uid]
	if !ok {
		return "", gateway.ErrNotFound
	}
	return uin, nil
}

func (f *Fake) MessagesBySeq(_ context.Context, _ model.Peer, seq string, _ int) ([]model.RawMessage, error) {
	if err := f.err("seq:" + seq); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Messages[seq], nil
}

func (f *Fake) CachedMember(_ context.Context, groupCode, uid string) (model.GroupMember, error) {
	if err := f.err("cached:" + groupCode + ":" + uid); err != nil {
		return model.GroupMember{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Cached[groupCode+":"+uid]
	if !ok {
		return model.GroupMember{}, gateway.ErrNotFound
	}
	return m, nil
}

func (f *Fake) QuitGroup(_ context.Context, groupCode string) error {
	f.mu.Lock()
	f.QuitCalls = append(f.QuitCalls, groupCode)
	f.mu.Unlock()
	return f.err("quit:" + groupCode)
}

func (f *Fake) ClearBuddyRequestUnread(_ context.Context) error {
	f.mu.Lock()
	f.ClearCalls++
	f.mu.Unlock()
	return f.err("clear")
}
