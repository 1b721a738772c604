package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/errorx"
)

func TestRoomCreateIfAbsentConcurrent(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.Room.CreateIfAbsent(ctx, &model.Room{Uuid: "deal_F_V", Name: "F / V"})
			if err != nil {
				t.Errorf("CreateIfAbsent error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
}

func TestTransactionRollback(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Room.CreateIfAbsent(ctx, &model.Room{Uuid: "r1"}); err != nil {
			return err
		}
		if _, err := tx.Member.CreateIfAbsent(ctx, &model.RoomMember{RoomUuid: "r1", UserId: "u1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction error = %v, want boom", err)
	}
	if _, err := repos.Room.FindByUuid(ctx, "r1"); !errorx.IsNotFound(err) {
		t.Fatalf("room should be rolled back, got err = %v", err)
	}
	members, _ := repos.Member.FindByRoom(ctx, "r1")
	if len(members) != 0 {
		t.Fatalf("members = %d, want 0", len(members))
	}
}

func TestTransactionPanicRollsBack(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		_ = tx.Audit.Create(ctx, &model.AuditLog{RoomUuid: "r1", Action: model.AuditJoin})
		panic("unexpected")
	})
	if err == nil {
		t.Fatal("expected error from panicking transaction")
	}
	entries, _ := repos.Audit.FindByRoom(ctx, "r1")
	if len(entries) != 0 {
		t.Fatalf("audit entries = %d, want 0", len(entries))
	}
}

func TestInviteRedeemRespectsLimitAndExpiry(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	now := time.Now()

	if err := repos.Invite.Create(ctx, &model.Invite{Code: "ABCD1234", RoomUuid: "r1", MaxUses: 1, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := repos.Invite.Redeem(ctx, "ABCD1234", now); !ok {
		t.Fatal("first redeem should succeed")
	}
	if ok, _ := repos.Invite.Redeem(ctx, "ABCD1234", now); ok {
		t.Fatal("second redeem should fail once max uses reached")
	}

	if err := repos.Invite.Create(ctx, &model.Invite{Code: "OLD00000", RoomUuid: "r1", MaxUses: 5, ExpiresAt: now.Add(-time.Minute)}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := repos.Invite.Redeem(ctx, "OLD00000", now); ok {
		t.Fatal("expired invite should not be redeemable")
	}
}

func TestMessagesOrderedAndSoftDeleted(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	at := time.Now()

	for _, uuid := range []string{"m3", "m1", "m2"} {
		seq := map[string]int64{"m1": 1, "m2": 2, "m3": 3}[uuid]
		if err := repos.Message.Create(ctx, &model.Message{Uuid: uuid, Seq: seq, RoomUuid: "r1", CreatedAt: at}); err != nil {
			t.Fatal(err)
		}
	}
	if err := repos.Message.SoftDelete(ctx, "m2", at); err != nil {
		t.Fatal(err)
	}

	visible, _ := repos.Message.FindByRoom(ctx, "r1", false, 0)
	if len(visible) != 2 || visible[0].Uuid != "m1" || visible[1].Uuid != "m3" {
		t.Fatalf("visible = %+v", visible)
	}
	all, _ := repos.Message.FindByRoom(ctx, "r1", true, 0)
	if len(all) != 3 || all[1].Uuid != "m2" || !all[1].IsDeleted {
		t.Fatalf("all = %+v", all)
	}
	latest, _ := repos.Message.FindByRoom(ctx, "r1", true, 2)
	if len(latest) != 2 || latest[0].Uuid != "m2" || latest[1].Uuid != "m3" {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestFileDecideOnlyFromPending(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	if err := repos.File.Create(ctx, &model.FileUpload{Uuid: "f1", RoomUuid: "r1", Status: model.FileStatusPending}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := repos.File.Decide(ctx, "f1", model.FileStatusApproved, "raftai", "", time.Now()); !ok {
		t.Fatal("first decision should apply")
	}
	if ok, _ := repos.File.Decide(ctx, "f1", model.FileStatusRejected, "raftai", "", time.Now()); ok {
		t.Fatal("second decision should be refused")
	}
	file, _ := repos.File.FindByUuid(ctx, "f1")
	if file.Status != model.FileStatusApproved {
		t.Fatalf("status = %s, want approved", file.Status)
	}
}
