package memory

import (
	"context"
	"sort"

	"raft_chat_server/internal/model"
)

type memberRepository struct{ v view }

func (r memberRepository) CreateIfAbsent(_ context.Context, member *model.RoomMember) (bool, error) {
	created := false
	err := r.v.run(func(st *state) error {
		members := st.members[member.RoomUuid]
		if members == nil {
			members = make(map[string]model.RoomMember)
			st.members[member.RoomUuid] = members
		}
		if _, ok := members[member.UserId]; ok {
			return nil
		}
		member.Id = st.id()
		members[member.UserId] = *member
		created = true
		return nil
	})
	return created, err
}

func (r memberRepository) Find(_ context.Context, roomUuid, userId string) (*model.RoomMember, error) {
	var out *model.RoomMember
	err := r.v.run(func(st *state) error {
		member, ok := st.members[roomUuid][userId]
		if !ok {
			return notFound("member %s not in room %s", userId, roomUuid)
		}
		out = &member
		return nil
	})
	return out, err
}

func (r memberRepository) FindByRoom(_ context.Context, roomUuid string) ([]model.RoomMember, error) {
	var out []model.RoomMember
	err := r.v.run(func(st *state) error {
		for _, m := range st.members[roomUuid] {
			out = append(out, m)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
		return nil
	})
	return out, err
}

// FindByRoomForUpdate 事务已持有全局锁，普通读取即可
func (r memberRepository) FindByRoomForUpdate(ctx context.Context, roomUuid string) ([]model.RoomMember, error) {
	return r.FindByRoom(ctx, roomUuid)
}

func (r memberRepository) FindRoomUuidsByUser(_ context.Context, userId string) ([]string, error) {
	var out []string
	err := r.v.run(func(st *state) error {
		for roomUuid, members := range st.members {
			if _, ok := members[userId]; ok {
				out = append(out, roomUuid)
			}
		}
		sort.Strings(out)
		return nil
	})
	return out, err
}

func (r memberRepository) Delete(_ context.Context, roomUuid, userId string) (bool, error) {
	removed := false
	err := r.v.run(func(st *state) error {
		if _, ok := st.members[roomUuid][userId]; ok {
			delete(st.members[roomUuid], userId)
			removed = true
		}
		return nil
	})
	return removed, err
}
