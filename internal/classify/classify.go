// Package classify turns raw backend notifications into domain events.
//
// Every matcher is first-match-wins. A lookup miss or a malformed embedded
// payload only abandons the branch being tried; any other error fails the item.
package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"imbridge/internal/gateway"
	"imbridge/internal/model"
	"imbridge/pkg/logger"
)

var (
	// ErrMalformed 嵌入的 JSON/XML 无法解析或缺少字段
	ErrMalformed = errors.New("classify: malformed payload")
	// ErrTargetMissing 通知引用的消息查不到，与查询未命中一样只放弃当前分支
	ErrTargetMissing = errors.New("classify: referenced message not found")
)

// Recoverable reports whether err only invalidates the branch that produced it.
func Recoverable(err error) bool {
	return errors.Is(err, gateway.ErrNotFound) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrTargetMissing)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

type Pipeline struct {
	gw      gateway.Gateway
	selfUin string
	logger  *zap.Logger
}

// New builds a pipeline. selfUin is reported as the departed member when the
// local identity is kicked by an operator nobody can resolve.
func New(gw gateway.Gateway, selfUin string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		gw:      gw,
		selfUin: selfUin,
		logger:  logger,
	}
}

// groupCodeOf 群聊中 peerUin 即群号
func groupCodeOf(msg *model.RawMessage) string {
	if msg.PeerUin != "" {
		return msg.PeerUin
	}
	return msg.PeerUID
}

func (p *Pipeline) skipBranch(ctx context.Context, msg *model.RawMessage, err error) {
	logger.WithTrace(ctx, p.logger).Warn("Abandoned classification branch",
		zap.String("msg_id", msg.MsgID),
		zap.Int("chat_type", int(msg.ChatType)),
		zap.Error(err),
	)
}

// resolveOperator tries the group member lookup first, then the global user
// lookup. An empty uin with a nil error means neither knows the uid.
func (p *Pipeline) resolveOperator(ctx context.Context, groupCode, uid string) (string, error) {
	if uid == "" {
		return "", nil
	}
	uin, err := p.gw.GroupMemberUin(ctx, groupCode, uid)
	if err == nil {
		return uin, nil
	}
	if !errors.Is(err, gateway.ErrNotFound) {
		return "", fmt.Errorf("resolve operator in group: %w", err)
	}

	uin, err = p.gw.UserUin(ctx, uid)
	if errors.Is(err, gateway.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve operator: %w", err)
	}
	return uin, nil
}
