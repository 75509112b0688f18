package classify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/tidwall/gjson"

	"imbridge/contracts/events"
	"imbridge/internal/gateway"
	"imbridge/internal/model"
)

// 表情回应按 seq 反查时拉取的消息数，后端会返回相邻消息
const emojiLikeLookupCount = 10

func (p *Pipeline) shutUp(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	attr := tip.GroupElement.ShutUp
	if attr == nil {
		return nil, malformed("ban tip without shutUp attribute")
	}
	duration, err := strconv.Atoi(strings.TrimSpace(attr.Duration))
	if err != nil {
		return nil, malformed("shut-up duration %q", attr.Duration)
	}

	group := groupCodeOf(msg)
	operator, err := p.gw.GroupMemberUin(ctx, group, attr.Admin.UID)
	if err != nil {
		return nil, fmt.Errorf("resolve shut-up operator: %w", err)
	}

	// 有目标成员为单人禁言，否则为全员禁言；duration <= 0 表示解除
	if attr.Member != nil && attr.Member.UID != "" {
		target, err := p.gw.GroupMemberUin(ctx, group, attr.Member.UID)
		if err != nil {
			return nil, fmt.Errorf("resolve shut-up target: %w", err)
		}
		if duration > 0 {
			return events.GroupShutUpPut{
				GroupCode:   group,
				TargetUin:   target,
				OperatorUin: operator,
				Duration:    duration,
				GrayTip:     tip,
				Message:     msg,
			}, nil
		}
		return events.GroupShutUpLift{
			GroupCode:   group,
			TargetUin:   target,
			OperatorUin: operator,
			GrayTip:     tip,
			Message:     msg,
		}, nil
	}

	if duration > 0 {
		return events.GroupShutUpAllPut{
			GroupCode:   group,
			OperatorUin: operator,
			Duration:    duration,
			GrayTip:     tip,
			Message:     msg,
		}, nil
	}
	return events.GroupShutUpAllLift{
		GroupCode:   group,
		OperatorUin: operator,
		GrayTip:     tip,
		Message:     msg,
	}, nil
}

func parseXML(content string) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: xml gray tip: %v", ErrMalformed, err)
	}
	return doc, nil
}

// memberIncreaseInvite 第一个 qq@uin 为邀请人，第二个为新成员
func (p *Pipeline) memberIncreaseInvite(msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	doc, err := parseXML(tip.XMLElement.Content)
	if err != nil {
		return nil, err
	}

	var uins []string
	for _, n := range xmlquery.Find(doc, "//qq") {
		if uin := n.SelectAttr("uin"); uin != "" {
			uins = append(uins, uin)
		}
	}
	if len(uins) < 2 {
		return nil, malformed("invite tip carries %d uin attributes", len(uins))
	}

	return events.GroupMemberIncreaseInvite{
		GroupCode:    groupCodeOf(msg),
		InvitorUin:   uins[0],
		NewMemberUin: uins[1],
		GrayTip:      tip,
		Message:      msg,
	}, nil
}

func (p *Pipeline) emojiLike(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	doc, err := parseXML(tip.XMLElement.Content)
	if err != nil {
		return nil, err
	}

	var operator, seq, emojiID string
	if n := xmlquery.FindOne(doc, "//qq"); n != nil {
		operator = n.SelectAttr("jp")
	}
	if n := xmlquery.FindOne(doc, "//url"); n != nil {
		seq = n.SelectAttr("msgseq")
	}
	if n := xmlquery.FindOne(doc, "//face"); n != nil {
		emojiID = n.SelectAttr("id")
	}
	if operator == "" || seq == "" || emojiID == "" {
		return nil, malformed("emoji-like tip missing qq@jp, url@msgseq or face@id")
	}

	group := groupCodeOf(msg)
	peer := model.Peer{ChatType: model.ChatTypeGroup, PeerUID: group}
	list, err := p.gw.MessagesBySeq(ctx, peer, seq, emojiLikeLookupCount)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return nil, fmt.Errorf("fetch liked message: %w", err)
	}

	target := earliestWithSeq(list, seq)
	if target == nil || target.MsgID == "" {
		return nil, fmt.Errorf("%w: emoji-like seq %s in group %s", ErrTargetMissing, seq, group)
	}

	return events.GroupEmojiLike{
		GroupCode:   group,
		OperatorUin: operator,
		MessageID:   target.MsgID,
		Likes:       []events.EmojiLike{{EmojiID: emojiID, Count: 1}},
		GrayTip:     tip,
		Message:     msg,
	}, nil
}

// earliestWithSeq picks the oldest message whose seq matches exactly.
func earliestWithSeq(list []model.RawMessage, seq string) *model.RawMessage {
	var (
		best     *model.RawMessage
		bestTime int64
	)
	for i := range list {
		if list[i].MsgSeq != seq {
			continue
		}
		t, _ := strconv.ParseInt(list[i].MsgTime, 10, 64)
		if best == nil || t < bestTime {
			best, bestTime = &list[i], t
		}
	}
	return best
}

// pokePair 必须恰好有两个带 uid 的条目：发起者与目标
func (p *Pipeline) pokePair(ctx context.Context, jsonStr string) (string, string, error) {
	if !gjson.Valid(jsonStr) {
		return "", "", malformed("poke json")
	}

	var uids []string
	gjson.Get(jsonStr, "items").ForEach(func(_, item gjson.Result) bool {
		if uid := item.Get("uid").String(); uid != "" {
			uids = append(uids, uid)
		}
		return true
	})
	if len(uids) != 2 {
		return "", "", malformed("poke carries %d participants", len(uids))
	}

	initiator, err := p.gw.UserUin(ctx, uids[0])
	if err != nil {
		return "", "", fmt.Errorf("resolve poke initiator: %w", err)
	}
	target, err := p.gw.UserUin(ctx, uids[1])
	if err != nil {
		return "", "", fmt.Errorf("resolve poke target: %w", err)
	}
	return initiator, target, nil
}

func (p *Pipeline) essence(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	jsonStr := tip.JSONGrayTipElement.JSONStr
	if !gjson.Valid(jsonStr) {
		return nil, malformed("essence json")
	}

	link := gjson.Get(jsonStr, "items.0.jp").String()
	u, err := url.Parse(link)
	if err != nil || link == "" {
		return nil, malformed("essence link %q", link)
	}
	seq := u.Query().Get("msgSeq")
	groupCode := u.Query().Get("groupCode")
	if seq == "" || groupCode == "" {
		return nil, malformed("essence link %q lacks msgSeq or groupCode", link)
	}

	peer := model.Peer{ChatType: model.ChatTypeGroup, PeerUID: groupCode}
	list, err := p.gw.MessagesBySeq(ctx, peer, seq, 1)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return nil, fmt.Errorf("fetch essence message: %w", err)
	}
	if len(list) == 0 || list[0].MsgID == "" {
		return nil, fmt.Errorf("%w: essence seq %s in group %s", ErrTargetMissing, seq, groupCode)
	}

	return events.GroupEssence{
		GroupCode: groupCodeOf(msg),
		MessageID: list[0].MsgID,
		Operation: events.EssenceAdd,
		GrayTip:   tip,
		Message:   msg,
	}, nil
}

// title 字段位置固定：items[1].param[0] 为成员 uin，items[3].txt 为新头衔
func (p *Pipeline) title(msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	jsonStr := tip.JSONGrayTipElement.JSONStr
	if !gjson.Valid(jsonStr) {
		return nil, malformed("title json")
	}

	member := gjson.Get(jsonStr, "items.1.param.0")
	title := gjson.Get(jsonStr, "items.3.txt")
	if !member.Exists() || member.String() == "" || !title.Exists() {
		return nil, malformed("title json layout")
	}

	return events.GroupTitle{
		GroupCode: groupCodeOf(msg),
		TargetUin: member.String(),
		NewTitle:  title.String(),
		GrayTip:   tip,
		Message:   msg,
	}, nil
}
