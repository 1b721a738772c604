package memory

import (
	"context"
	"sort"
	"time"

	"raft_chat_server/internal/model"
)

type fileRepository struct{ v view }

func (r fileRepository) Create(_ context.Context, file *model.FileUpload) error {
	return r.v.run(func(st *state) error {
		file.Id = st.id()
		if file.CreatedAt.IsZero() {
			file.CreatedAt = time.Now()
		}
		st.files[file.Uuid] = *file
		return nil
	})
}

func (r fileRepository) FindByUuid(_ context.Context, uuid string) (*model.FileUpload, error) {
	var out *model.FileUpload
	err := r.v.run(func(st *state) error {
		file, ok := st.files[uuid]
		if !ok {
			return notFound("file %s not found", uuid)
		}
		out = &file
		return nil
	})
	return out, err
}

func (r fileRepository) FindByUuids(_ context.Context, uuids []string) ([]model.FileUpload, error) {
	var out []model.FileUpload
	err := r.v.run(func(st *state) error {
		for _, uuid := range uuids {
			if file, ok := st.files[uuid]; ok {
				out = append(out, file)
			}
		}
		return nil
	})
	return out, err
}

func (r fileRepository) FindByRoom(_ context.Context, roomUuid, status string) ([]model.FileUpload, error) {
	var out []model.FileUpload
	err := r.v.run(func(st *state) error {
		for _, file := range st.files {
			if file.RoomUuid == roomUuid && (status == "" || file.Status == status) {
				out = append(out, file)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, err
}

func (r fileRepository) Decide(_ context.Context, uuid, status, reviewerId, note string, at time.Time) (bool, error) {
	decided := false
	err := r.v.run(func(st *state) error {
		file, ok := st.files[uuid]
		if !ok || file.Status != model.FileStatusPending {
			return nil
		}
		file.Status = status
		file.ReviewerId = reviewerId
		file.ReviewNote = note
		file.ReviewedAt = &at
		st.files[uuid] = file
		decided = true
		return nil
	})
	return decided, err
}
