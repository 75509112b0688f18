package model

// ChatType 会话类型
type ChatType int

const (
	ChatTypeUnknown ChatType = 0
	ChatTypeC2C     ChatType = 1
	ChatTypeGroup   ChatType = 2
)

// SendStatus 消息发送状态
type SendStatus int

const (
	SendStatusFailed       SendStatus = 0
	SendStatusSending      SendStatus = 1
	SendStatusSuccess      SendStatus = 2
	SendStatusSuccessNoSeq SendStatus = 3
)

// GrayTipSubType 灰条子类型
type GrayTipSubType int

const (
	GrayTipSubTypeRevoke       GrayTipSubType = 1
	GrayTipSubTypeProclamation GrayTipSubType = 2
	GrayTipSubTypeEmojiReply   GrayTipSubType = 3
	GrayTipSubTypeGroup        GrayTipSubType = 4
	GrayTipSubTypeBuddy        GrayTipSubType = 5
	GrayTipSubTypeFeed         GrayTipSubType = 6
	GrayTipSubTypeEssence      GrayTipSubType = 7
	GrayTipSubTypeGroupNotify  GrayTipSubType = 8
	GrayTipSubTypeBuddyNotify  GrayTipSubType = 9
	GrayTipSubTypeFile         GrayTipSubType = 10
	GrayTipSubTypeFeedChannel  GrayTipSubType = 11
	GrayTipSubTypeXML          GrayTipSubType = 12
	GrayTipSubTypeLocal        GrayTipSubType = 13
	GrayTipSubTypeBlock        GrayTipSubType = 14
	GrayTipSubTypeAIOOp        GrayTipSubType = 15
	GrayTipSubTypeWallet       GrayTipSubType = 16
	GrayTipSubTypeJSON         GrayTipSubType = 17
)

// TipGroupElementType 群灰条类型
type TipGroupElementType int

const (
	TipGroupMemberIncrease TipGroupElementType = 1
	TipGroupKicked         TipGroupElementType = 3
	TipGroupBan            TipGroupElementType = 8
)

// Business ids carried by JSON gray tips.
const (
	BusiIDPoke    = 1061
	BusiIDEssence = 2401
	BusiIDTitle   = 2407
)

// XML gray tip templates.
const (
	TemplIDEmojiLike = "10382"
	TemplIDBuddyAdd  = "10229"
)

// RawMessage 后端推送的原始消息，同时承载 onRecvMsg 与 onMsgInfoListUpdate 两种记录
type RawMessage struct {
	MsgID      string     `json:"msgId"`
	MsgSeq     string     `json:"msgSeq"`
	MsgTime    string     `json:"msgTime"`
	ChatType   ChatType   `json:"chatType"`
	SenderUID  string     `json:"senderUid"`
	SenderUin  string     `json:"senderUin"`
	PeerUID    string     `json:"peerUid"`
	PeerUin    string     `json:"peerUin"`
	Elements   []Element  `json:"elements"`
	RecallTime string     `json:"recallTime"`
	SendStatus SendStatus `json:"sendStatus"`
}

// IsRecalled reports whether the record carries a non-zero recall timestamp.
func (m *RawMessage) IsRecalled() bool {
	return m.RecallTime != "" && m.RecallTime != "0"
}

type Element struct {
	ElementType    int             `json:"elementType"`
	ElementID      string          `json:"elementId"`
	TextElement    *TextElement    `json:"textElement,omitempty"`
	FileElement    *FileElement    `json:"fileElement,omitempty"`
	GrayTipElement *GrayTipElement `json:"grayTipElement,omitempty"`
}

type TextElement struct {
	Content string `json:"content"`
}

type FileElement struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileSize string `json:"fileSize"`
	FileMd5  string `json:"fileMd5,omitempty"`
	FileUUID string `json:"fileUuid,omitempty"`
}

type GrayTipElement struct {
	SubElementType     GrayTipSubType      `json:"subElementType"`
	RevokeElement      *RevokeElement      `json:"revokeElement,omitempty"`
	GroupElement       *TipGroupElement    `json:"groupElement,omitempty"`
	XMLElement         *XMLElement         `json:"xmlElement,omitempty"`
	JSONGrayTipElement *JSONGrayTipElement `json:"jsonGrayTipElement,omitempty"`
}

type RevokeElement struct {
	OperatorUID   string `json:"operatorUid"`
	OperatorRole  string `json:"operatorRole,omitempty"`
	OriginMsgID   string `json:"origMsgId,omitempty"`
	IsSelfOperate bool   `json:"isSelfOperate,omitempty"`
}

type TipGroupElement struct {
	Type      TipGroupElementType `json:"type"`
	MemberUID string              `json:"memberUid"`
	AdminUID  string              `json:"adminUid"`
	ShutUp    *ShutUpAttr         `json:"shutUp,omitempty"`
}

type ShutUpAttr struct {
	// Duration 秒数，<= 0 表示解除禁言
	Duration string     `json:"duration"`
	Member   *UIDHolder `json:"member,omitempty"`
	Admin    UIDHolder  `json:"admin"`
}

type UIDHolder struct {
	UID  string `json:"uid"`
	Name string `json:"name,omitempty"`
}

type XMLElement struct {
	TemplID string `json:"templId"`
	Content string `json:"content"`
}

type JSONGrayTipElement struct {
	BusiID  int    `json:"busiId"`
	JSONStr string `json:"jsonStr"`
}

// Peer 会话定位
type Peer struct {
	ChatType ChatType `json:"chatType"`
	PeerUID  string   `json:"peerUid"`
	GuildID  string   `json:"guildId"`
}
