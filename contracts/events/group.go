package events

import "imbridge/internal/model"

// AdminOperation group.admin 的操作方向
type AdminOperation string

const (
	AdminSet   AdminOperation = "set"
	AdminUnset AdminOperation = "unset"
)

// EssenceOperation group.essence 的操作方向
type EssenceOperation string

const (
	EssenceAdd    EssenceOperation = "add"
	EssenceDelete EssenceOperation = "delete"
)

type GroupRequest struct {
	GroupCode    string             `json:"group_code"`
	RequesterUin string             `json:"requester_uin"`
	Words        string             `json:"words"`
	Notify       *model.GroupNotify `json:"notify,omitempty"`
}

func (GroupRequest) Kind() Kind { return KindGroupRequest }

type GroupInvite struct {
	GroupCode  string             `json:"group_code"`
	InvitorUin string             `json:"invitor_uin"`
	Notify     *model.GroupNotify `json:"notify,omitempty"`
}

func (GroupInvite) Kind() Kind { return KindGroupInvite }

// GroupAdmin 来自群通知时 Notify 非空，来自成员变动时 Member 非空
type GroupAdmin struct {
	GroupCode string             `json:"group_code"`
	TargetUin string             `json:"target_uin"`
	Operation AdminOperation     `json:"operation"`
	Notify    *model.GroupNotify `json:"notify,omitempty"`
	Member    *model.GroupMember `json:"member,omitempty"`
}

func (GroupAdmin) Kind() Kind { return KindGroupAdmin }

type GroupShutUpPut struct {
	GroupCode   string                `json:"group_code"`
	TargetUin   string                `json:"target_uin"`
	OperatorUin string                `json:"operator_uin"`
	Duration    int                   `json:"duration"`
	GrayTip     *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message     *model.RawMessage     `json:"message,omitempty"`
}

func (GroupShutUpPut) Kind() Kind { return KindGroupShutUpPut }

type GroupShutUpLift struct {
	GroupCode   string                `json:"group_code"`
	TargetUin   string                `json:"target_uin"`
	OperatorUin string                `json:"operator_uin"`
	GrayTip     *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message     *model.RawMessage     `json:"message,omitempty"`
}

func (GroupShutUpLift) Kind() Kind { return KindGroupShutUpLift }

type GroupShutUpAllPut struct {
	GroupCode   string                `json:"group_code"`
	OperatorUin string                `json:"operator_uin"`
	Duration    int                   `json:"duration"`
	GrayTip     *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message     *model.RawMessage     `json:"message,omitempty"`
}

func (GroupShutUpAllPut) Kind() Kind { return KindGroupShutUpAllPut }

type GroupShutUpAllLift struct {
	GroupCode   string                `json:"group_code"`
	OperatorUin string                `json:"operator_uin"`
	GrayTip     *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message     *model.RawMessage     `json:"message,omitempty"`
}

func (GroupShutUpAllLift) Kind() Kind { return KindGroupShutUpAllLift }

type GroupMemberIncreaseInvite struct {
	GroupCode    string                `json:"group_code"`
	NewMemberUin string                `json:"new_member_uin"`
	InvitorUin   string                `json:"invitor_uin"`
	GrayTip      *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message      *model.RawMessage     `json:"message,omitempty"`
}

func (GroupMemberIncreaseInvite) Kind() Kind { return KindGroupMemberIncreaseInvite }

// GroupMemberIncreaseActive ApprovalUin 为空表示无需审批
type GroupMemberIncreaseActive struct {
	GroupCode    string                `json:"group_code"`
	NewMemberUin string                `json:"new_member_uin"`
	ApprovalUin  string                `json:"approval_uin,omitempty"`
	GrayTip      *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message      *model.RawMessage     `json:"message,omitempty"`
}

func (GroupMemberIncreaseActive) Kind() Kind { return KindGroupMemberIncreaseActive }

type GroupMemberDecreaseKick struct {
	GroupCode     string             `json:"group_code"`
	LeftMemberUin string             `json:"left_member_uin"`
	OperatorUin   string             `json:"operator_uin"`
	Notify        *model.GroupNotify `json:"notify,omitempty"`
}

func (GroupMemberDecreaseKick) Kind() Kind { return KindGroupMemberDecreaseKick }

type GroupMemberDecreaseSelfKicked struct {
	GroupCode   string                `json:"group_code"`
	OperatorUin string                `json:"operator_uin"`
	GrayTip     *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message     *model.RawMessage     `json:"message,omitempty"`
}

func (GroupMemberDecreaseSelfKicked) Kind() Kind { return KindGroupMemberDecreaseSelfKicked }

type GroupMemberDecreaseLeave struct {
	GroupCode     string             `json:"group_code"`
	LeftMemberUin string             `json:"left_member_uin"`
	Notify        *model.GroupNotify `json:"notify,omitempty"`
}

func (GroupMemberDecreaseLeave) Kind() Kind { return KindGroupMemberDecreaseLeave }

// GroupMemberDecreaseUnknown 成员离开但操作者无法解析。来源为群通知时 Notify 非空，
// 来源为灰条时 GrayTip/Message 非空
type GroupMemberDecreaseUnknown struct {
	GroupCode     string                `json:"group_code"`
	LeftMemberUin string                `json:"left_member_uin"`
	Notify        *model.GroupNotify    `json:"notify,omitempty"`
	GrayTip       *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message       *model.RawMessage     `json:"message,omitempty"`
}

func (GroupMemberDecreaseUnknown) Kind() Kind { return KindGroupMemberDecreaseUnknown }

// GroupEssence Message 为灰条所在消息，MessageID 才是被设精的消息
type GroupEssence struct {
	GroupCode string                `json:"group_code"`
	MessageID string                `json:"message_id"`
	Operation EssenceOperation      `json:"operation"`
	GrayTip   *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message   *model.RawMessage     `json:"message,omitempty"`
}

func (GroupEssence) Kind() Kind { return KindGroupEssence }

type GroupRecall struct {
	GroupCode   string            `json:"group_code"`
	OperatorUin string            `json:"operator_uin"`
	MessageID   string            `json:"message_id"`
	Message     *model.RawMessage `json:"message,omitempty"`
}

func (GroupRecall) Kind() Kind { return KindGroupRecall }

type GroupTitle struct {
	GroupCode string                `json:"group_code"`
	TargetUin string                `json:"target_uin"`
	NewTitle  string                `json:"new_title"`
	GrayTip   *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message   *model.RawMessage     `json:"message,omitempty"`
}

func (GroupTitle) Kind() Kind { return KindGroupTitle }

type GroupUpload struct {
	GroupCode   string             `json:"group_code"`
	UploaderUin string             `json:"uploader_uin"`
	File        *model.FileElement `json:"file"`
	Message     *model.RawMessage  `json:"message,omitempty"`
}

func (GroupUpload) Kind() Kind { return KindGroupUpload }

type EmojiLike struct {
	EmojiID string `json:"emoji_id"`
	Count   int    `json:"count"`
}

type GroupEmojiLike struct {
	GroupCode   string                `json:"group_code"`
	OperatorUin string                `json:"operator_uin"`
	MessageID   string                `json:"message_id"`
	Likes       []EmojiLike           `json:"likes"`
	GrayTip     *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message     *model.RawMessage     `json:"message,omitempty"`
}

func (GroupEmojiLike) Kind() Kind { return KindGroupEmojiLike }

type GroupPoke struct {
	GroupCode    string                `json:"group_code"`
	InitiatorUin string                `json:"initiator_uin"`
	TargetUin    string                `json:"target_uin"`
	GrayTip      *model.GrayTipElement `json:"gray_tip,omitempty"`
	Message      *model.RawMessage     `json:"message,omitempty"`
}

func (GroupPoke) Kind() Kind { return KindGroupPoke }
