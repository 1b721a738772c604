package memory

import (
	"context"
	"sort"
	"time"

	"raft_chat_server/internal/model"

	"gorm.io/datatypes"
)

type roomRepository struct{ v view }

func (r roomRepository) CreateIfAbsent(_ context.Context, room *model.Room) (bool, error) {
	created := false
	err := r.v.run(func(st *state) error {
		if _, ok := st.rooms[room.Uuid]; ok {
			return nil
		}
		now := time.Now()
		room.ID = st.id()
		if room.CreatedAt.IsZero() {
			room.CreatedAt = now
		}
		room.UpdatedAt = now
		st.rooms[room.Uuid] = *room
		created = true
		return nil
	})
	return created, err
}

func (r roomRepository) FindByUuid(_ context.Context, uuid string) (*model.Room, error) {
	var out *model.Room
	err := r.v.run(func(st *state) error {
		room, ok := st.rooms[uuid]
		if !ok {
			return notFound("room %s not found", uuid)
		}
		out = &room
		return nil
	})
	return out, err
}

// FindByUuidForUpdate 事务已持有全局锁，普通读取即可
func (r roomRepository) FindByUuidForUpdate(ctx context.Context, uuid string) (*model.Room, error) {
	return r.FindByUuid(ctx, uuid)
}

func (r roomRepository) FindByUuids(_ context.Context, uuids []string) ([]model.Room, error) {
	var out []model.Room
	err := r.v.run(func(st *state) error {
		for _, uuid := range uuids {
			if room, ok := st.rooms[uuid]; ok {
				out = append(out, room)
			}
		}
		return nil
	})
	return out, err
}

// update 对单个房间应用修改
func (r roomRepository) update(uuid string, fn func(room *model.Room)) error {
	return r.v.run(func(st *state) error {
		room, ok := st.rooms[uuid]
		if !ok {
			return notFound("room %s not found", uuid)
		}
		fn(&room)
		room.UpdatedAt = time.Now()
		st.rooms[uuid] = room
		return nil
	})
}

func (r roomRepository) UpdateName(_ context.Context, uuid, name string) error {
	return r.update(uuid, func(room *model.Room) { room.Name = name })
}

func (r roomRepository) UpdateStatus(_ context.Context, uuid string, from []string, to string) (bool, error) {
	changed := false
	err := r.update(uuid, func(room *model.Room) {
		for _, s := range from {
			if room.Status == s {
				room.Status = to
				changed = true
				return
			}
		}
	})
	return changed, err
}

func (r roomRepository) UpdateInvite(_ context.Context, uuid, code string, expiry time.Time) error {
	return r.update(uuid, func(room *model.Room) {
		room.InviteCode = code
		room.InviteExpiry = &expiry
	})
}

func (r roomRepository) TouchActivity(_ context.Context, uuid string, at time.Time) error {
	return r.update(uuid, func(room *model.Room) { room.LastActivityAt = at })
}

func (r roomRepository) UpdateMemory(_ context.Context, uuid string, memory model.RoomMemory) error {
	return r.update(uuid, func(room *model.Room) { room.Memory = datatypes.NewJSONType(memory) })
}

func (r roomRepository) AddPin(_ context.Context, pin *model.RoomPin) (bool, error) {
	added := false
	err := r.v.run(func(st *state) error {
		pins := st.pins[pin.RoomUuid]
		if pins == nil {
			pins = make(map[string]model.RoomPin)
			st.pins[pin.RoomUuid] = pins
		}
		if _, ok := pins[pin.MessageUuid]; ok {
			return nil
		}
		pin.Id = st.id()
		pins[pin.MessageUuid] = *pin
		added = true
		return nil
	})
	return added, err
}

func (r roomRepository) RemovePin(_ context.Context, roomUuid, messageUuid string) (bool, error) {
	removed := false
	err := r.v.run(func(st *state) error {
		if _, ok := st.pins[roomUuid][messageUuid]; ok {
			delete(st.pins[roomUuid], messageUuid)
			removed = true
		}
		return nil
	})
	return removed, err
}

func (r roomRepository) FindPins(_ context.Context, roomUuid string) ([]string, error) {
	var ids []string
	err := r.v.run(func(st *state) error {
		pins := make([]model.RoomPin, 0, len(st.pins[roomUuid]))
		for _, p := range st.pins[roomUuid] {
			pins = append(pins, p)
		}
		sort.Slice(pins, func(i, j int) bool { return pins[i].Id < pins[j].Id })
		for _, p := range pins {
			ids = append(ids, p.MessageUuid)
		}
		return nil
	})
	return ids, err
}

func (r roomRepository) ToggleMute(_ context.Context, roomUuid, userId string) (bool, error) {
	muted := false
	err := r.v.run(func(st *state) error {
		mutes := st.mutes[roomUuid]
		if _, ok := mutes[userId]; ok {
			delete(mutes, userId)
			return nil
		}
		if mutes == nil {
			mutes = make(map[string]model.RoomMute)
			st.mutes[roomUuid] = mutes
		}
		mutes[userId] = model.RoomMute{Id: st.id(), RoomUuid: roomUuid, UserId: userId, CreatedAt: time.Now()}
		muted = true
		return nil
	})
	return muted, err
}

func (r roomRepository) FindMutes(_ context.Context, roomUuid string) ([]string, error) {
	var ids []string
	err := r.v.run(func(st *state) error {
		for userId := range st.mutes[roomUuid] {
			ids = append(ids, userId)
		}
		sort.Strings(ids)
		return nil
	})
	return ids, err
}
