package memory

import (
	"context"
	"sort"
	"time"

	"raft_chat_server/internal/model"
)

type auditRepository struct{ v view }

func (r auditRepository) Create(_ context.Context, entry *model.AuditLog) error {
	return r.v.run(func(st *state) error {
		entry.Id = st.id()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		st.audits = append(st.audits, *entry)
		return nil
	})
}

func (r auditRepository) FindByRoom(_ context.Context, roomUuid string) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := r.v.run(func(st *state) error {
		for _, entry := range st.audits {
			if entry.RoomUuid == roomUuid {
				out = append(out, entry)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, err
}
