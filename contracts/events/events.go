package events

import (
	"encoding/json"
	"fmt"
)

// Kind 事件类型，同时作为对外发布时的 routing key
type Kind string

const (
	KindMessageReceive Kind = "message.receive"
	KindMessageSend    Kind = "message.send"

	KindBuddyRequest     Kind = "buddy.request"
	KindBuddyAdd         Kind = "buddy.add"
	KindBuddyPoke        Kind = "buddy.poke"
	KindBuddyRecall      Kind = "buddy.recall"
	KindBuddyInputStatus Kind = "buddy.input_status"

	KindGroupRequest Kind = "group.request"
	KindGroupInvite  Kind = "group.invite"
	KindGroupAdmin   Kind = "group.admin"

	KindGroupShutUpPut     Kind = "group.shut_up.put"
	KindGroupShutUpLift    Kind = "group.shut_up.lift"
	KindGroupShutUpAllPut  Kind = "group.shut_up_all.put"
	KindGroupShutUpAllLift Kind = "group.shut_up_all.lift"

	KindGroupMemberIncreaseInvite Kind = "group.member_increase.invite"
	KindGroupMemberIncreaseActive Kind = "group.member_increase.active"

	KindGroupMemberDecreaseKick       Kind = "group.member_decrease.kick"
	KindGroupMemberDecreaseSelfKicked Kind = "group.member_decrease.self_kicked"
	KindGroupMemberDecreaseLeave      Kind = "group.member_decrease.leave"
	KindGroupMemberDecreaseUnknown    Kind = "group.member_decrease.unknown"

	KindGroupEssence   Kind = "group.essence"
	KindGroupRecall    Kind = "group.recall"
	KindGroupTitle     Kind = "group.title"
	KindGroupUpload    Kind = "group.upload"
	KindGroupEmojiLike Kind = "group.emoji_like"
	KindGroupPoke      Kind = "group.poke"
)

// Event is implemented by every domain event in this package.
type Event interface {
	Kind() Kind
}

var factories = map[Kind]func() Event{
	KindMessageReceive:                func() Event { return &MessageReceive{} },
	KindMessageSend:                   func() Event { return &MessageSend{} },
	KindBuddyRequest:                  func() Event { return &BuddyRequest{} },
	KindBuddyAdd:                      func() Event { return &BuddyAdd{} },
	KindBuddyPoke:                     func() Event { return &BuddyPoke{} },
	KindBuddyRecall:                   func() Event { return &BuddyRecall{} },
	KindBuddyInputStatus:              func() Event { return &BuddyInputStatus{} },
	KindGroupRequest:                  func() Event { return &GroupRequest{} },
	KindGroupInvite:                   func() Event { return &GroupInvite{} },
	KindGroupAdmin:                    func() Event { return &GroupAdmin{} },
	KindGroupShutUpPut:                func() Event { return &GroupShutUpPut{} },
	KindGroupShutUpLift:               func() Event { return &GroupShutUpLift{} },
	KindGroupShutUpAllPut:             func() Event { return &GroupShutUpAllPut{} },
	KindGroupShutUpAllLift:            func() Event { return &GroupShutUpAllLift{} },
	KindGroupMemberIncreaseInvite:     func() Event { return &GroupMemberIncreaseInvite{} },
	KindGroupMemberIncreaseActive:     func() Event { return &GroupMemberIncreaseActive{} },
	KindGroupMemberDecreaseKick:       func() Event { return &GroupMemberDecreaseKick{} },
	KindGroupMemberDecreaseSelfKicked: func() Event { return &GroupMemberDecreaseSelfKicked{} },
	KindGroupMemberDecreaseLeave:      func() Event { return &GroupMemberDecreaseLeave{} },
	KindGroupMemberDecreaseUnknown:    func() Event { return &GroupMemberDecreaseUnknown{} },
	KindGroupEssence:                  func() Event { return &GroupEssence{} },
	KindGroupRecall:                   func() Event { return &GroupRecall{} },
	KindGroupTitle:                    func() Event { return &GroupTitle{} },
	KindGroupUpload:                   func() Event { return &GroupUpload{} },
	KindGroupEmojiLike:                func() Event { return &GroupEmojiLike{} },
	KindGroupPoke:                     func() Event { return &GroupPoke{} },
}

// Kinds returns every kind the taxonomy defines.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	return kinds
}

// Known reports whether k is part of the taxonomy.
func Known(k Kind) bool {
	_, ok := factories[k]
	return ok
}

// Decode 根据 kind 反序列化事件，返回指针类型
func Decode(kind Kind, data json.RawMessage) (Event, error) {
	newEvent, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}
	ev := newEvent()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return ev, nil
}
