package classify

import (
	"context"
	"errors"
	"fmt"

	"imbridge/contracts/events"
	"imbridge/internal/gateway"
	"imbridge/internal/model"
)

// Recall classifies a recalled message. Chat kinds other than direct and group
// produce no event.
func (p *Pipeline) Recall(ctx context.Context, msg *model.RawMessage) (events.Event, error) {
	switch msg.ChatType {
	case model.ChatTypeC2C:
		return events.BuddyRecall{
			Uin:       msg.PeerUin,
			MessageID: msg.MsgID,
			Message:   msg,
		}, nil
	case model.ChatTypeGroup:
		operator, err := p.recallOperator(ctx, msg)
		if err != nil {
			return nil, err
		}
		return events.GroupRecall{
			GroupCode:   groupCodeOf(msg),
			OperatorUin: operator,
			MessageID:   msg.MsgID,
			Message:     msg,
		}, nil
	default:
		return nil, nil
	}
}

// recallOperator 取第一个撤回元素中的操作者，查不到时默认为原发送者
func (p *Pipeline) recallOperator(ctx context.Context, msg *model.RawMessage) (string, error) {
	for _, el := range msg.Elements {
		if el.GrayTipElement == nil || el.GrayTipElement.RevokeElement == nil {
			continue
		}
		uid := el.GrayTipElement.RevokeElement.OperatorUID
		if uid == "" {
			continue
		}

		uin, err := p.gw.GroupMemberUin(ctx, groupCodeOf(msg), uid)
		if errors.Is(err, gateway.ErrNotFound) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("resolve recall operator: %w", err)
		}
		return uin, nil
	}
	return msg.SenderUin, nil
}
