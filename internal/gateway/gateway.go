// Package gateway resolves the backend's internal ids into user-facing ones and
// fetches the records a notification only references indirectly.
package gateway

import (
	"context"
	"errors"

	"imbridge/internal/model"
)

// ErrNotFound 查询目标不存在（成员未缓存、用户未知等），不视为故障
var ErrNotFound = errors.New("gateway: not found")

// Gateway is the lookup surface the classification pipeline depends on.
// Every call may fail outright or return ErrNotFound.
type Gateway interface {
	GroupMemberUin(ctx context.Context, groupCode, uid string) (string, error)
	UserUin(ctx context.Context, uid string) (string, error)
	MessagesBySeq(ctx context.Context, peer model.Peer, seq string, count int) ([]model.RawMessage, error)
	// CachedMember 返回本地成员缓存中的快照，用于角色变更比对
	CachedMember(ctx context.Context, groupCode, uid string) (model.GroupMember, error)
	QuitGroup(ctx context.Context, groupCode string) error
	ClearBuddyRequestUnread(ctx context.Context) error
}
