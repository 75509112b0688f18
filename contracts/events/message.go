package events

import "imbridge/internal/model"

// MessageReceive 未被归类的入站消息，原样携带原始记录
type MessageReceive struct {
	Message *model.RawMessage `json:"message"`
}

func (MessageReceive) Kind() Kind { return KindMessageReceive }

// MessageSend 本端发送成功且未被归类的消息
type MessageSend struct {
	Message *model.RawMessage `json:"message"`
}

func (MessageSend) Kind() Kind { return KindMessageSend }

type BuddyRequest struct {
	RequesterUin string              `json:"requester_uin"`
	Words        string              `json:"words"`
	Request      *model.BuddyRequest `json:"request,omitempty"`
}

func (BuddyRequest) Kind() Kind { return KindBuddyRequest }

type BuddyAdd struct {
	Uin     string                `json:"uin"`
	GrayTip *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message *model.RawMessage     `json:"message,omitempty"`
}

func (BuddyAdd) Kind() Kind { return KindBuddyAdd }

type BuddyPoke struct {
	InitiatorUin string                `json:"initiator_uin"`
	TargetUin    string                `json:"target_uin"`
	GrayTip      *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message      *model.RawMessage     `json:"message,omitempty"`
}

func (BuddyPoke) Kind() Kind { return KindBuddyPoke }

// BuddyRecall Message 为状态更新记录本身，而不是被撤回的消息内容
type BuddyRecall struct {
	Uin       string            `json:"uin"`
	MessageID string            `json:"message_id"`
	Message   *model.RawMessage `json:"message,omitempty"`
}

func (BuddyRecall) Kind() Kind { return KindBuddyRecall }

type BuddyInputStatus struct {
	Uin        string             `json:"uin"`
	EventType  int                `json:"event_type"`
	StatusText string             `json:"status_text"`
	Status     *model.InputStatus `json:"status,omitempty"`
}

func (BuddyInputStatus) Kind() Kind { return KindBuddyInputStatus }
