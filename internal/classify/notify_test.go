package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imbridge/contracts/events"
	"imbridge/internal/gateway"
	"imbridge/internal/model"
)

func notify(typ model.GroupNotifyType, status model.GroupNotifyStatus, user1, user2 string) *model.GroupNotify {
	return &model.GroupNotify{
		Seq:        "seq-1",
		Type:       typ,
		Status:     status,
		Group:      model.NotifyGroup{GroupCode: testGroup, GroupName: "test"},
		User1:      model.NotifyUser{UID: user1},
		User2:      model.NotifyUser{UID: user2},
		Postscript: "let me in",
	}
}

func TestNotifyAdminChanges(t *testing.T) {
	p, fake := newTestPipeline(t)
	fake.Members[testGroup+":u_1"] = "10001"
	ctx := context.Background()

	tests := []struct {
		typ  model.GroupNotifyType
		want events.AdminOperation
	}{
		{model.GroupNotifySetAdmin, events.AdminSet},
		{model.GroupNotifyCancelAdminNotifyAdmin, events.AdminUnset},
		{model.GroupNotifyCancelAdminNotifyCanceled, events.AdminUnset},
	}
	for _, tt := range tests {
		ev, err := p.Notify(ctx, notify(tt.typ, model.GroupNotifyStatusInit, "u_1", ""))
		require.NoError(t, err)
		admin := ev.(events.GroupAdmin)
		assert.Equal(t, tt.want, admin.Operation)
		assert.Equal(t, "10001", admin.TargetUin)
		assert.Equal(t, testGroup, admin.GroupCode)
	}
}

func TestNotifyMemberLeave(t *testing.T) {
	p, fake := newTestPipeline(t)
	fake.Users["u_left"] = "20001"
	fake.Users["u_op"] = "20002"
	ctx := context.Background()

	ev, err := p.Notify(ctx, notify(model.GroupNotifyMemberLeaveNotifyAdmin, model.GroupNotifyStatusInit, "u_left", ""))
	require.NoError(t, err)
	assert.Equal(t, "20001", ev.(events.GroupMemberDecreaseLeave).LeftMemberUin)

	ev, err = p.Notify(ctx, notify(model.GroupNotifyMemberLeaveNotifyAdmin, model.GroupNotifyStatusInit, "u_left", "u_op"))
	require.NoError(t, err)
	kick := ev.(events.GroupMemberDecreaseKick)
	assert.Equal(t, "20001", kick.LeftMemberUin)
	assert.Equal(t, "20002", kick.OperatorUin)

	ev, err = p.Notify(ctx, notify(model.GroupNotifyMemberLeaveNotifyAdmin, model.GroupNotifyStatusInit, "u_left", "u_ghost"))
	require.NoError(t, err)
	assert.Equal(t, "20001", ev.(events.GroupMemberDecreaseUnknown).LeftMemberUin)

	fake.Errs["user:u_op"] = errors.New("timeout")
	_, err = p.Notify(ctx, notify(model.GroupNotifyMemberLeaveNotifyAdmin, model.GroupNotifyStatusInit, "u_left", "u_op"))
	assert.Error(t, err)
}

func TestNotifyRequestsOnlyWhenUnhandled(t *testing.T) {
	p, fake := newTestPipeline(t)
	fake.Users["u_1"] = "10001"
	ctx := context.Background()

	ev, err := p.Notify(ctx, notify(model.GroupNotifyRequestJoinNeedAdminPass, model.GroupNotifyStatusUnhandle, "u_1", ""))
	require.NoError(t, err)
	req := ev.(events.GroupRequest)
	assert.Equal(t, "10001", req.RequesterUin)
	assert.Equal(t, "let me in", req.Words)

	ev, err = p.Notify(ctx, notify(model.GroupNotifyInvitedByMember, model.GroupNotifyStatusUnhandle, "u_1", ""))
	require.NoError(t, err)
	assert.Equal(t, "10001", ev.(events.GroupInvite).InvitorUin)

	for _, typ := range []model.GroupNotifyType{model.GroupNotifyRequestJoinNeedAdminPass, model.GroupNotifyInvitedByMember} {
		ev, err = p.Notify(ctx, notify(typ, model.GroupNotifyStatusAgreed, "u_1", ""))
		require.NoError(t, err)
		assert.Nil(t, ev)
	}
}

func TestNotifyIgnoredAndUnrecognizedCodes(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	for _, typ := range []model.GroupNotifyType{model.GroupNotifyKickMemberNotifyAdmin, model.GroupNotifyTransferGroupNotifyAdmin, 42} {
		ev, err := p.Notify(ctx, notify(typ, model.GroupNotifyStatusUnhandle, "u_1", ""))
		require.NoError(t, err)
		assert.Nil(t, ev)
	}
}

func TestNotifyLookupMiss(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Notify(context.Background(), notify(model.GroupNotifySetAdmin, model.GroupNotifyStatusInit, "u_nobody", ""))
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestPendingBuddyRequests(t *testing.T) {
	batch := &model.BuddyRequestBatch{
		UnreadNums: 4,
		BuddyReqs: []model.BuddyRequest{
			{FriendUID: "u_1"},
			{FriendUID: "u_2", IsInitiator: true},
			{FriendUID: "u_3", IsDecide: true, ReqType: model.BuddyReqMeAgreed},
			{FriendUID: "u_4", IsDecide: true, ReqType: model.BuddyReqMeInitiatorWaitPeerConfirm},
			{FriendUID: "u_5"},
		},
	}

	pending := PendingBuddyRequests(batch)
	require.Len(t, pending, 2)
	assert.Equal(t, "u_1", pending[0].FriendUID)
	assert.Equal(t, "u_4", pending[1].FriendUID)

	batch.UnreadNums = 10
	assert.Len(t, PendingBuddyRequests(batch), 3)
}

func TestBuddyRequestAndInputStatus(t *testing.T) {
	p, fake := newTestPipeline(t)
	fake.Users["u_1"] = "10001"
	ctx := context.Background()

	ev, err := p.BuddyRequest(ctx, &model.BuddyRequest{FriendUID: "u_1", ExtWords: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "10001", ev.(events.BuddyRequest).RequesterUin)
	assert.Equal(t, "hi", ev.(events.BuddyRequest).Words)

	_, err = p.BuddyRequest(ctx, &model.BuddyRequest{FriendUID: "u_unknown"})
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	ev, err = p.InputStatus(ctx, &model.InputStatus{FromUID: "u_1", EventType: 1, StatusText: "typing"})
	require.NoError(t, err)
	assert.Equal(t, "10001", ev.(events.BuddyInputStatus).Uin)
}

func TestMemberRoleChange(t *testing.T) {
	p, fake := newTestPipeline(t)
	ctx := context.Background()

	member := &model.GroupMember{UID: "u_1", Uin: "10001", Role: model.GroupMemberRoleAdmin}

	ev, err := p.MemberRoleChange(ctx, testGroup, member)
	require.NoError(t, err)
	assert.Nil(t, ev, "uncached member")

	fake.Cached[testGroup+":u_1"] = model.GroupMember{UID: "u_1", Uin: "10001", Role: model.GroupMemberRoleNormal}
	ev, err = p.MemberRoleChange(ctx, testGroup, member)
	require.NoError(t, err)
	assert.Nil(t, ev, "role change flag not set")

	fake.Cached[testGroup+":u_1"] = model.GroupMember{UID: "u_1", Uin: "10001", IsChangeRole: true}
	ev, err = p.MemberRoleChange(ctx, testGroup, member)
	require.NoError(t, err)
	assert.Equal(t, events.AdminSet, ev.(events.GroupAdmin).Operation)

	demoted := &model.GroupMember{UID: "u_1", Role: model.GroupMemberRoleNormal}
	ev, err = p.MemberRoleChange(ctx, testGroup, demoted)
	require.NoError(t, err)
	admin := ev.(events.GroupAdmin)
	assert.Equal(t, events.AdminUnset, admin.Operation)
	assert.Equal(t, "10001", admin.TargetUin)
}
