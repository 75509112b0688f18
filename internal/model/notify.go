package model

// BuddyReqType 好友请求类型
type BuddyReqType int

const (
	BuddyReqMeInitiator                BuddyReqType = 0
	BuddyReqPeerInitiator              BuddyReqType = 1
	BuddyReqMeAgreed                   BuddyReqType = 2
	BuddyReqMeAgreedAndAdded           BuddyReqType = 3
	BuddyReqPeerAgreed                 BuddyReqType = 4
	BuddyReqPeerAgreedAndAdded         BuddyReqType = 5
	BuddyReqPeerRefused                BuddyReqType = 6
	BuddyReqMeRefused                  BuddyReqType = 7
	BuddyReqMeIgnored                  BuddyReqType = 8
	BuddyReqMeAgreeAnyone              BuddyReqType = 9
	BuddyReqMeSetQuestion              BuddyReqType = 10
	BuddyReqMeAgreeAndAddFailed        BuddyReqType = 11
	BuddyReqMsgInfo                    BuddyReqType = 12
	BuddyReqMeInitiatorWaitPeerConfirm BuddyReqType = 13
)

type BuddyRequest struct {
	FriendUID   string       `json:"friendUid"`
	ReqType     BuddyReqType `json:"reqType"`
	ExtWords    string       `json:"extWords"`
	IsInitiator bool         `json:"isInitiator"`
	IsDecide    bool         `json:"isDecide"`
	ReqTime     string       `json:"reqTime"`
}

// Pending reports whether the request still awaits a decision from the local identity.
func (r *BuddyRequest) Pending() bool {
	if r.IsInitiator {
		return false
	}
	return !r.IsDecide || r.ReqType == BuddyReqMeInitiatorWaitPeerConfirm
}

// BuddyRequestBatch onBuddyReqChange 推送内容
type BuddyRequestBatch struct {
	UnreadNums int            `json:"unreadNums"`
	BuddyReqs  []BuddyRequest `json:"buddyReqs"`
}

// GroupNotifyType 群通知类型
type GroupNotifyType int

const (
	GroupNotifyUnspecified                 GroupNotifyType = 0
	GroupNotifyInvitedByMember             GroupNotifyType = 1
	GroupNotifyRefuseInvited               GroupNotifyType = 2
	GroupNotifyRefusedByAdmin              GroupNotifyType = 3
	GroupNotifyAgreedToJoinDirect          GroupNotifyType = 4
	GroupNotifyInvitedNeedAdminPass        GroupNotifyType = 5
	GroupNotifyAgreedToJoinByAdmin         GroupNotifyType = 6
	GroupNotifyRequestJoinNeedAdminPass    GroupNotifyType = 7
	GroupNotifySetAdmin                    GroupNotifyType = 8
	GroupNotifyKickMemberNotifyAdmin       GroupNotifyType = 9
	GroupNotifyKickMemberNotifyKicked      GroupNotifyType = 10
	GroupNotifyMemberLeaveNotifyAdmin      GroupNotifyType = 11
	GroupNotifyCancelAdminNotifyCanceled   GroupNotifyType = 12
	GroupNotifyCancelAdminNotifyAdmin      GroupNotifyType = 13
	GroupNotifyTransferGroupNotifyOldOwner GroupNotifyType = 14
	GroupNotifyTransferGroupNotifyAdmin    GroupNotifyType = 15
)

// Known reports whether the code belongs to the backend's documented enum.
func (t GroupNotifyType) Known() bool {
	return t >= GroupNotifyUnspecified && t <= GroupNotifyTransferGroupNotifyAdmin
}

// GroupNotifyStatus 群通知处理状态
type GroupNotifyStatus int

const (
	GroupNotifyStatusInit     GroupNotifyStatus = 0
	GroupNotifyStatusUnhandle GroupNotifyStatus = 1
	GroupNotifyStatusAgreed   GroupNotifyStatus = 2
	GroupNotifyStatusRefused  GroupNotifyStatus = 3
	GroupNotifyStatusIgnored  GroupNotifyStatus = 4
)

type GroupNotify struct {
	Seq        string            `json:"seq"`
	Type       GroupNotifyType   `json:"type"`
	Status     GroupNotifyStatus `json:"status"`
	Group      NotifyGroup       `json:"group"`
	User1      NotifyUser        `json:"user1"`
	User2      NotifyUser        `json:"user2"`
	Postscript string            `json:"postscript"`
}

type NotifyGroup struct {
	GroupCode string `json:"groupCode"`
	GroupName string `json:"groupName"`
}

type NotifyUser struct {
	UID      string `json:"uid"`
	NickName string `json:"nickName"`
}

// DataSource 成员数据来源
type DataSource int

const (
	DataSourceLocal  DataSource = 0
	DataSourceRemote DataSource = 1
)

// GroupMemberRole 群成员角色
type GroupMemberRole int

const (
	GroupMemberRoleNormal GroupMemberRole = 2
	GroupMemberRoleAdmin  GroupMemberRole = 3
	GroupMemberRoleOwner  GroupMemberRole = 4
)

type GroupMember struct {
	UID          string          `json:"uid"`
	Uin          string          `json:"uin"`
	Nick         string          `json:"nick"`
	Role         GroupMemberRole `json:"role"`
	IsChangeRole bool            `json:"isChangeRole"`
}

// MemberDiff onMemberInfoChange 推送内容
type MemberDiff struct {
	GroupCode  string        `json:"groupCode"`
	DataSource DataSource    `json:"dataSource"`
	Members    []GroupMember `json:"members"`
}

// InputStatus onInputStatusPush 推送内容
type InputStatus struct {
	ChatType   ChatType `json:"chatType"`
	EventType  int      `json:"eventType"`
	FromUID    string   `json:"fromUid"`
	ToUID      string   `json:"toUid"`
	StatusText string   `json:"statusText"`
	Timestamp  string   `json:"timestamp"`
}
