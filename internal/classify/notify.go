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

// Notify classifies one group notify. Known codes without a matching event and
// codes outside the backend enum produce no event; the latter are logged.
func (p *Pipeline) Notify(ctx context.Context, n *model.GroupNotify) (events.Event, error) {
	group := n.Group.GroupCode

	switch n.Type {
	case model.GroupNotifySetAdmin:
		return p.adminChange(ctx, n, events.AdminSet)

	case model.GroupNotifyCancelAdminNotifyAdmin, model.GroupNotifyCancelAdminNotifyCanceled:
		return p.adminChange(ctx, n, events.AdminUnset)

	case model.GroupNotifyMemberLeaveNotifyAdmin:
		return p.memberDecrease(ctx, n)

	case model.GroupNotifyRequestJoinNeedAdminPass:
		if n.Status != model.GroupNotifyStatusUnhandle {
			return nil, nil
		}
		requester, err := p.gw.UserUin(ctx, n.User1.UID)
		if err != nil {
			return nil, fmt.Errorf("resolve join requester: %w", err)
		}
		return events.GroupRequest{
			GroupCode:    group,
			RequesterUin: requester,
			Words:        n.Postscript,
			Notify:       n,
		}, nil

	case model.GroupNotifyInvitedByMember:
		if n.Status != model.GroupNotifyStatusUnhandle {
			return nil, nil
		}
		invitor, err := p.gw.UserUin(ctx, n.User1.UID)
		if err != nil {
			return nil, fmt.Errorf("resolve invitor: %w", err)
		}
		return events.GroupInvite{
			GroupCode:  group,
			InvitorUin: invitor,
			Notify:     n,
		}, nil
	}

	if !n.Type.Known() {
		logger.WithTrace(ctx, p.logger).Warn("Unrecognized group notify type",
			zap.Int("type", int(n.Type)),
			zap.String("group_code", group),
			zap.String("seq", n.Seq),
		)
	}
	return nil, nil
}

func (p *Pipeline) adminChange(ctx context.Context, n *model.GroupNotify, op events.AdminOperation) (events.Event, error) {
	target, err := p.gw.GroupMemberUin(ctx, n.Group.GroupCode, n.User1.UID)
	if err != nil {
		return nil, fmt.Errorf("resolve admin target: %w", err)
	}
	return events.GroupAdmin{
		GroupCode: n.Group.GroupCode,
		TargetUin: target,
		Operation: op,
		Notify:    n,
	}, nil
}

// memberDecrease 有操作者为踢出，操作者查不到为 unknown，无操作者为主动退群
func (p *Pipeline) memberDecrease(ctx context.Context, n *model.GroupNotify) (events.Event, error) {
	group := n.Group.GroupCode

	left, err := p.gw.UserUin(ctx, n.User1.UID)
	if err != nil {
		return nil, fmt.Errorf("resolve departed member: %w", err)
	}

	if n.User2.UID == "" {
		return events.GroupMemberDecreaseLeave{
			GroupCode:     group,
			LeftMemberUin: left,
			Notify:        n,
		}, nil
	}

	operator, err := p.gw.UserUin(ctx, n.User2.UID)
	if errors.Is(err, gateway.ErrNotFound) {
		logger.WithTrace(ctx, p.logger).Warn("Kick operator unresolvable",
			zap.String("group_code", group),
			zap.String("seq", n.Seq),
		)
		return events.GroupMemberDecreaseUnknown{
			GroupCode:     group,
			LeftMemberUin: left,
			Notify:        n,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve kick operator: %w", err)
	}

	return events.GroupMemberDecreaseKick{
		GroupCode:     group,
		LeftMemberUin: left,
		OperatorUin:   operator,
		Notify:        n,
	}, nil
}
