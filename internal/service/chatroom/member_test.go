package chatroom

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
)

func TestInviteSingleUseUnderConcurrency(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	if _, err := s.GenerateInvite(ctx, roomId, "V", 1); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member GenerateInvite error = %v, want PermissionDenied", err)
	}
	invite, err := s.GenerateInvite(ctx, roomId, "F", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(invite.Code) != constants.INVITE_CODE_LEN || invite.MaxUses != 1 {
		t.Fatalf("invite = %+v", invite)
	}

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, rejected := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.JoinViaInvite(ctx, invite.Code, fmt.Sprintf("user%d", i), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errorx.IsValidation(err):
				rejected++
			default:
				t.Errorf("JoinViaInvite error = %v", err)
			}
		}(i)
	}
	wg.Wait()
	if joined != 1 || rejected != n-1 {
		t.Fatalf("joined = %d, rejected = %d", joined, rejected)
	}

	stored, err := s.repos.Invite.FindByCode(ctx, invite.Code)
	if err != nil {
		t.Fatal(err)
	}
	if stored.UsedCount != 1 {
		t.Fatalf("used count = %d, want 1", stored.UsedCount)
	}
	usages, _ := s.repos.Invite.FindUsages(ctx, invite.Code)
	if len(usages) != 1 {
		t.Fatalf("usages = %d, want 1", len(usages))
	}
}

func TestJoinViaInviteEdgeCases(t *testing.T) {
	s, notifier := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	if _, err := s.JoinViaInvite(ctx, "NOPE0000", "U", ""); !errorx.IsNotFound(err) {
		t.Fatalf("unknown code error = %v, want NotFound", err)
	}

	invite, err := s.GenerateInvite(ctx, roomId, "F", 2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.JoinViaInvite(ctx, invite.Code, "U", "Una")
	if err != nil || got != roomId {
		t.Fatalf("JoinViaInvite = %q, %v", got, err)
	}
	// 已是成员不消耗次数
	if got, err := s.JoinViaInvite(ctx, invite.Code, "V", ""); err != nil || got != roomId {
		t.Fatalf("existing member join = %q, %v", got, err)
	}
	stored, _ := s.repos.Invite.FindByCode(ctx, invite.Code)
	if stored.UsedCount != 1 {
		t.Fatalf("used count = %d, want 1", stored.UsedCount)
	}

	msgs, _ := s.ListMessages(ctx, roomId, "U", false)
	if last := msgs[len(msgs)-1]; last.Text != "Una joined the room" {
		t.Fatalf("last message = %q", last.Text)
	}
	if len(notifier.ofType(notify.EventMemberJoined)) != 1 {
		t.Fatal("expected one member_joined notification")
	}

	s.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	if _, err := s.JoinViaInvite(ctx, invite.Code, "W", ""); !errorx.IsValidation(err) {
		t.Fatalf("expired invite error = %v, want ValidationFailed", err)
	}
}

func TestSoleOwnerCannotBeRemoved(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	if err := s.RemoveMember(ctx, roomId, "F", "F"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("owner self-leave error = %v, want PermissionDenied", err)
	}
	if err := s.RemoveMember(ctx, roomId, constants.SYSTEM_ACTOR_ID, "F"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("admin removing owner error = %v, want PermissionDenied", err)
	}
	if err := s.RemoveMember(ctx, roomId, "V", "F"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member removing owner error = %v, want PermissionDenied", err)
	}
	if err := s.RemoveMember(ctx, roomId, "F", constants.SYSTEM_ACTOR_ID); !errorx.IsPermissionDenied(err) {
		t.Fatalf("removing system actor error = %v, want PermissionDenied", err)
	}

	members, _ := s.ListMembers(ctx, roomId, "F")
	if len(members) != 3 {
		t.Fatalf("members = %d, want 3", len(members))
	}
}

func TestAddRemoveAndLeave(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	if err := s.AddMember(ctx, roomId, "V", "A", "Analyst"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member AddMember error = %v, want PermissionDenied", err)
	}
	if err := s.AddMember(ctx, roomId, "F", "A", "Analyst"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, roomId, "F", "A", "Analyst"); !errorx.IsConflict(err) {
		t.Fatalf("duplicate AddMember error = %v, want Conflict", err)
	}
	if err := s.RemoveMember(ctx, roomId, "F", "A"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveMember(ctx, roomId, "V", "V"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListMessages(ctx, roomId, "V", false); !errorx.IsPermissionDenied(err) {
		t.Fatalf("former member read error = %v, want PermissionDenied", err)
	}

	entries, _ := s.ListAudit(ctx, roomId, "F")
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	want := []string{model.AuditJoin, model.AuditAddMember, model.AuditRemoveMember, model.AuditLeave}
	if fmt.Sprint(actions) != fmt.Sprint(want) {
		t.Fatalf("audit actions = %v, want %v", actions, want)
	}

	msgs, _ := s.ListMessages(ctx, roomId, "F", false)
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	for _, want := range []string{"Analyst was added to the room", "Analyst was removed from the room", "Venture left the room"} {
		found := false
		for _, text := range texts {
			if text == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing system message %q in %v", want, texts)
		}
	}
}

func TestToggleMute(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	if muted, err := s.ToggleMute(ctx, roomId, "V"); err != nil || !muted {
		t.Fatalf("ToggleMute = %v, %v, want true", muted, err)
	}
	view, _ := s.GetRoom(ctx, roomId, "V")
	if len(view.MutedBy) != 1 || view.MutedBy[0] != "V" {
		t.Fatalf("mutedBy = %v", view.MutedBy)
	}
	if muted, _ := s.ToggleMute(ctx, roomId, "V"); muted {
		t.Fatal("second toggle should unmute")
	}
}
