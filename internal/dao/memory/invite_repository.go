package memory

import (
	"context"
	"time"

	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/errorx"
)

type inviteRepository struct{ v view }

func (r inviteRepository) Create(_ context.Context, invite *model.Invite) error {
	return r.v.run(func(st *state) error {
		if _, ok := st.invites[invite.Code]; ok {
			return errorx.Newf(errorx.CodeConflict, "invite code %s already exists", invite.Code)
		}
		invite.Id = st.id()
		if invite.CreatedAt.IsZero() {
			invite.CreatedAt = time.Now()
		}
		st.invites[invite.Code] = *invite
		return nil
	})
}

func (r inviteRepository) FindByCode(_ context.Context, code string) (*model.Invite, error) {
	var out *model.Invite
	err := r.v.run(func(st *state) error {
		invite, ok := st.invites[code]
		if !ok {
			return notFound("invite %s not found", code)
		}
		out = &invite
		return nil
	})
	return out, err
}

func (r inviteRepository) Redeem(_ context.Context, code string, now time.Time) (bool, error) {
	redeemed := false
	err := r.v.run(func(st *state) error {
		invite, ok := st.invites[code]
		if !ok || invite.UsedCount >= invite.MaxUses || !invite.ExpiresAt.After(now) {
			return nil
		}
		invite.UsedCount++
		st.invites[code] = invite
		redeemed = true
		return nil
	})
	return redeemed, err
}

func (r inviteRepository) CreateUsage(_ context.Context, usage *model.InviteUsage) error {
	return r.v.run(func(st *state) error {
		for _, u := range st.usages {
			if u.InviteCode == usage.InviteCode && u.UserId == usage.UserId {
				return nil
			}
		}
		usage.Id = st.id()
		st.usages = append(st.usages, *usage)
		return nil
	})
}

func (r inviteRepository) FindUsages(_ context.Context, code string) ([]model.InviteUsage, error) {
	var out []model.InviteUsage
	err := r.v.run(func(st *state) error {
		for _, u := range st.usages {
			if u.InviteCode == code {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}
