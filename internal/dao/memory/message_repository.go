package memory

import (
	"context"
	"sort"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"
)

type messageRepository struct{ v view }

func (r messageRepository) Create(_ context.Context, msg *model.Message) error {
	return r.v.run(func(st *state) error {
		msg.Id = st.id()
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		st.messages[msg.Uuid] = *msg
		return nil
	})
}

func (r messageRepository) FindByUuid(_ context.Context, uuid string) (*model.Message, error) {
	var out *model.Message
	err := r.v.run(func(st *state) error {
		msg, ok := st.messages[uuid]
		if !ok {
			return notFound("message %s not found", uuid)
		}
		out = &msg
		return nil
	})
	return out, err
}

func (r messageRepository) FindByRoom(_ context.Context, roomUuid string, includeDeleted bool, limit int) ([]model.Message, error) {
	var out []model.Message
	err := r.v.run(func(st *state) error {
		for _, msg := range st.messages {
			if msg.RoomUuid != roomUuid || (msg.IsDeleted && !includeDeleted) {
				continue
			}
			out = append(out, msg)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, err
}

func (r messageRepository) update(uuid string, fn func(msg *model.Message)) error {
	return r.v.run(func(st *state) error {
		msg, ok := st.messages[uuid]
		if !ok {
			return notFound("message %s not found", uuid)
		}
		fn(&msg)
		st.messages[uuid] = msg
		return nil
	})
}

func (r messageRepository) UpdateText(_ context.Context, uuid, text string, at time.Time) error {
	return r.update(uuid, func(msg *model.Message) {
		msg.Text = text
		msg.IsEdited = true
		msg.EditedAt = &at
	})
}

func (r messageRepository) SoftDelete(_ context.Context, uuid string, at time.Time) error {
	return r.update(uuid, func(msg *model.Message) {
		msg.IsDeleted = true
		msg.DeletedAt = &at
	})
}

func (r messageRepository) SetPinned(_ context.Context, uuid string, pinned bool) error {
	return r.update(uuid, func(msg *model.Message) { msg.IsPinned = pinned })
}

func (r messageRepository) ToggleReaction(_ context.Context, messageUuid, emoji, userId string) (bool, error) {
	added := false
	key := messageUuid + "|" + emoji + "|" + userId
	err := r.v.run(func(st *state) error {
		if _, ok := st.reactions[key]; ok {
			delete(st.reactions, key)
			return nil
		}
		st.reactions[key] = model.MessageReaction{
			Id:          st.id(),
			MessageUuid: messageUuid,
			Emoji:       emoji,
			UserId:      userId,
			CreatedAt:   time.Now(),
		}
		added = true
		return nil
	})
	return added, err
}

func (r messageRepository) FindReactions(_ context.Context, messageUuids []string) ([]model.MessageReaction, error) {
	wanted := toSet(messageUuids)
	var out []model.MessageReaction
	err := r.v.run(func(st *state) error {
		for _, reaction := range st.reactions {
			if wanted[reaction.MessageUuid] {
				out = append(out, reaction)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, err
}

func (r messageRepository) MarkRead(_ context.Context, messageUuid, userId string, at time.Time) error {
	key := messageUuid + "|" + userId
	return r.v.run(func(st *state) error {
		if _, ok := st.reads[key]; ok {
			return nil
		}
		st.reads[key] = model.MessageRead{Id: st.id(), MessageUuid: messageUuid, UserId: userId, ReadAt: at}
		return nil
	})
}

func (r messageRepository) FindReads(_ context.Context, messageUuids []string) ([]model.MessageRead, error) {
	wanted := toSet(messageUuids)
	var out []model.MessageRead
	err := r.v.run(func(st *state) error {
		for _, read := range st.reads {
			if wanted[read.MessageUuid] {
				out = append(out, read)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, err
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func (r messageRepository) Search(_ context.Context, filter repository.MessageFilter) ([]model.Message, error) {
	var out []model.Message
	err := r.v.run(func(st *state) error {
		for _, msg := range st.messages {
			switch {
			case msg.RoomUuid != filter.RoomUuid, msg.IsDeleted:
				continue
			case filter.SendId != "" && msg.SendId != filter.SendId:
				continue
			case filter.Type != "" && msg.Type != filter.Type:
				continue
			case !filter.Before.IsZero() && !msg.CreatedAt.Before(filter.Before):
				continue
			case !filter.After.IsZero() && !msg.CreatedAt.After(filter.After):
				continue
			}
			out = append(out, msg)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}
