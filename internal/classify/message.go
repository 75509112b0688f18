package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"imbridge/contracts/events"
	"imbridge/internal/gateway"
	"imbridge/internal/model"
	"imbridge/pkg/logger"
)

// Message classifies an inbound or freshly sent message record.
//
// The returned slice holds the group.upload events seen before the match
// followed by the primary event. handled is false when no primary pattern
// matched, in which case the caller emits its own fallback event.
func (p *Pipeline) Message(ctx context.Context, msg *model.RawMessage) (out []events.Event, handled bool, err error) {
	switch msg.ChatType {
	case model.ChatTypeC2C:
		ev, err := p.direct(ctx, msg)
		if err != nil || ev == nil {
			return nil, false, err
		}
		return []events.Event{ev}, true, nil
	case model.ChatTypeGroup:
		return p.group(ctx, msg)
	default:
		return nil, false, nil
	}
}

func (p *Pipeline) direct(ctx context.Context, msg *model.RawMessage) (events.Event, error) {
	for i := range msg.Elements {
		tip := msg.Elements[i].GrayTipElement
		if tip == nil {
			continue
		}
		ev, err := p.directTip(ctx, msg, tip)
		if err != nil {
			if Recoverable(err) {
				p.skipBranch(ctx, msg, err)
				continue
			}
			return nil, err
		}
		if ev != nil {
			return ev, nil
		}
	}
	return nil, nil
}

func (p *Pipeline) directTip(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	if tip.SubElementType == model.GrayTipSubTypeJSON && tip.JSONGrayTipElement != nil &&
		tip.JSONGrayTipElement.BusiID == model.BusiIDPoke {
		initiator, target, err := p.pokePair(ctx, tip.JSONGrayTipElement.JSONStr)
		if err != nil {
			return nil, err
		}
		return events.BuddyPoke{
			InitiatorUin: initiator,
			TargetUin:    target,
			GrayTip:      tip,
			Message:      msg,
		}, nil
	}

	if tip.SubElementType == model.GrayTipSubTypeXML && tip.XMLElement != nil &&
		tip.XMLElement.TemplID == model.TemplIDBuddyAdd && msg.PeerUin != "" {
		return events.BuddyAdd{Uin: msg.PeerUin, GrayTip: tip, Message: msg}, nil
	}
	return nil, nil
}

func (p *Pipeline) group(ctx context.Context, msg *model.RawMessage) ([]events.Event, bool, error) {
	var out []events.Event
	for i := range msg.Elements {
		el := &msg.Elements[i]

		if tip := el.GrayTipElement; tip != nil {
			ev, err := p.groupTip(ctx, msg, tip)
			switch {
			case err != nil && Recoverable(err):
				p.skipBranch(ctx, msg, err)
			case err != nil:
				return nil, false, err
			case ev != nil:
				return append(out, ev), true, nil
			}
		}

		// 文件上传不终止扫描
		if el.FileElement != nil {
			out = append(out, events.GroupUpload{
				GroupCode:   groupCodeOf(msg),
				UploaderUin: msg.SenderUin,
				File:        el.FileElement,
				Message:     msg,
			})
		}
	}
	return out, false, nil
}

// groupTip 结构化 groupElement 优先于 XML，再到 JSON
func (p *Pipeline) groupTip(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	if ge := tip.GroupElement; ge != nil {
		switch ge.Type {
		case model.TipGroupMemberIncrease:
			return p.memberIncreaseActive(ctx, msg, tip)
		case model.TipGroupBan:
			return p.shutUp(ctx, msg, tip)
		case model.TipGroupKicked:
			return p.selfKicked(ctx, msg, tip)
		default:
			logger.WithTrace(ctx, p.logger).Warn("Unrecognized group gray tip type",
				zap.Int("type", int(ge.Type)),
				zap.String("msg_id", msg.MsgID),
				zap.String("group_code", groupCodeOf(msg)),
			)
		}
	}

	if xe := tip.XMLElement; xe != nil {
		if xe.TemplID == model.TemplIDEmojiLike {
			return p.emojiLike(ctx, msg, tip)
		}
		return p.memberIncreaseInvite(msg, tip)
	}

	if tip.SubElementType == model.GrayTipSubTypeJSON && tip.JSONGrayTipElement != nil {
		switch tip.JSONGrayTipElement.BusiID {
		case model.BusiIDPoke:
			initiator, target, err := p.pokePair(ctx, tip.JSONGrayTipElement.JSONStr)
			if err != nil {
				return nil, err
			}
			return events.GroupPoke{
				GroupCode:    groupCodeOf(msg),
				InitiatorUin: initiator,
				TargetUin:    target,
				GrayTip:      tip,
				Message:      msg,
			}, nil
		case model.BusiIDEssence:
			return p.essence(ctx, msg, tip)
		case model.BusiIDTitle:
			return p.title(msg, tip)
		}
	}
	return nil, nil
}

func (p *Pipeline) memberIncreaseActive(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	ge := tip.GroupElement
	group := groupCodeOf(msg)

	member, err := p.gw.GroupMemberUin(ctx, group, ge.MemberUID)
	if err != nil {
		return nil, fmt.Errorf("resolve new member: %w", err)
	}

	var approval string
	if ge.AdminUID != "" {
		approval, err = p.gw.GroupMemberUin(ctx, group, ge.AdminUID)
		if err != nil && !errors.Is(err, gateway.ErrNotFound) {
			return nil, fmt.Errorf("resolve approving admin: %w", err)
		}
	}

	return events.GroupMemberIncreaseActive{
		GroupCode:    group,
		NewMemberUin: member,
		ApprovalUin:  approval,
		GrayTip:      tip,
		Message:      msg,
	}, nil
}

func (p *Pipeline) selfKicked(ctx context.Context, msg *model.RawMessage, tip *model.GrayTipElement) (events.Event, error) {
	group := groupCodeOf(msg)

	// 退群失败只记录，不影响事件
	if err := p.gw.QuitGroup(ctx, group); err != nil {
		logger.WithTrace(ctx, p.logger).Warn("Quit group after kick failed",
			zap.String("group_code", group),
			zap.Error(err),
		)
	}

	operator, err := p.resolveOperator(ctx, group, tip.GroupElement.AdminUID)
	if err != nil {
		return nil, err
	}
	if operator == "" {
		return events.GroupMemberDecreaseUnknown{
			GroupCode:     group,
			LeftMemberUin: p.selfUin,
			GrayTip:       tip,
			Message:       msg,
		}, nil
	}
	return events.GroupMemberDecreaseSelfKicked{
		GroupCode:   group,
		OperatorUin: operator,
		GrayTip:     tip,
		Message:     msg,
	}, nil
}
