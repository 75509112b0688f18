package classify

import (
	"context"
	"errors"
	"fmt"

	"imbridge/contracts/events"
	"imbridge/internal/gateway"
	"imbridge/internal/model"
)

// MemberRoleChange compares one member snapshot from a local member diff with
// the cached snapshot. It returns nil when the member is not cached or its role
// did not change.
func (p *Pipeline) MemberRoleChange(ctx context.Context, groupCode string, member *model.GroupMember) (events.Event, error) {
	cached, err := p.gw.CachedMember(ctx, groupCode, member.UID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached member: %w", err)
	}
	if !cached.IsChangeRole && !member.IsChangeRole {
		return nil, nil
	}

	uin := member.Uin
	if uin == "" {
		uin = cached.Uin
	}
	if uin == "" {
		if uin, err = p.gw.GroupMemberUin(ctx, groupCode, member.UID); err != nil {
			return nil, fmt.Errorf("resolve member with changed role: %w", err)
		}
	}

	op := events.AdminUnset
	if member.Role == model.GroupMemberRoleAdmin {
		op = events.AdminSet
	}
	return events.GroupAdmin{
		GroupCode: groupCode,
		TargetUin: uin,
		Operation: op,
		Member:    member,
	}, nil
}
