package memory

import (
	"context"
	"sort"
	"time"

	"raft_chat_server/internal/model"
)

type reportRepository struct{ v view }

func (r reportRepository) Create(_ context.Context, report *model.Report) error {
	return r.v.run(func(st *state) error {
		report.Id = st.id()
		now := time.Now()
		if report.CreatedAt.IsZero() {
			report.CreatedAt = now
		}
		report.UpdatedAt = now
		st.reports[report.Uuid] = *report
		return nil
	})
}

func (r reportRepository) FindByUuid(_ context.Context, uuid string) (*model.Report, error) {
	var out *model.Report
	err := r.v.run(func(st *state) error {
		report, ok := st.reports[uuid]
		if !ok {
			return notFound("report %s not found", uuid)
		}
		out = &report
		return nil
	})
	return out, err
}

func (r reportRepository) FindByRoom(_ context.Context, roomUuid, status string) ([]model.Report, error) {
	var out []model.Report
	err := r.v.run(func(st *state) error {
		for _, report := range st.reports {
			if report.RoomUuid == roomUuid && (status == "" || report.Status == status) {
				out = append(out, report)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, err
}

func (r reportRepository) Transition(_ context.Context, uuid string, from []string, to, reviewerId, note string, at time.Time) (bool, error) {
	moved := false
	err := r.v.run(func(st *state) error {
		report, ok := st.reports[uuid]
		if !ok {
			return nil
		}
		for _, s := range from {
			if report.Status != s {
				continue
			}
			report.Status = to
			report.ReviewedBy = reviewerId
			report.ResolutionNote = note
			report.ReviewedAt = &at
			report.UpdatedAt = at
			st.reports[uuid] = report
			moved = true
			return nil
		}
		return nil
	})
	return moved, err
}
