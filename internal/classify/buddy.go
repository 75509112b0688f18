package classify

import (
	"context"
	"fmt"

	"imbridge/contracts/events"
	"imbridge/internal/model"
)

// PendingBuddyRequests returns the entries among the first UnreadNums of batch
// that still await a local decision.
func PendingBuddyRequests(batch *model.BuddyRequestBatch) []model.BuddyRequest {
	n := batch.UnreadNums
	if n > len(batch.BuddyReqs) {
		n = len(batch.BuddyReqs)
	}

	var pending []model.BuddyRequest
	for i := 0; i < n; i++ {
		if batch.BuddyReqs[i].Pending() {
			pending = append(pending, batch.BuddyReqs[i])
		}
	}
	return pending
}

func (p *Pipeline) BuddyRequest(ctx context.Context, req *model.BuddyRequest) (events.Event, error) {
	requester, err := p.gw.UserUin(ctx, req.FriendUID)
	if err != nil {
		return nil, fmt.Errorf("resolve buddy requester: %w", err)
	}
	return events.BuddyRequest{
		RequesterUin: requester,
		Words:        req.ExtWords,
		Request:      req,
	}, nil
}

func (p *Pipeline) InputStatus(ctx context.Context, st *model.InputStatus) (events.Event, error) {
	uin, err := p.gw.UserUin(ctx, st.FromUID)
	if err != nil {
		return nil, fmt.Errorf("resolve typing buddy: %w", err)
	}
	return events.BuddyInputStatus{
		Uin:        uin,
		EventType:  st.EventType,
		StatusText: st.StatusText,
		Status:     st,
	}, nil
}
