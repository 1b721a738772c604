package chatroom

import (
	"context"
	"strings"
	"testing"
	"time"

	"raft_chat_server/internal/dto/request"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/constants"
	"raft_chat_server/pkg/errorx"
)

func send(t *testing.T, s *chatRoomService, roomId, senderId, text string) string {
	t.Helper()
	id, err := s.SendMessage(context.Background(), request.SendMessageRequest{RoomId: roomId, Text: text, SenderId: senderId})
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	return id
}

func findMessage(views []respond.MessageView, id string) *respond.MessageView {
	for i := range views {
		if views[i].MessageId == id {
			return &views[i]
		}
	}
	return nil
}

func TestSendMessageValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	tests := []struct {
		name  string
		req   request.SendMessageRequest
		check func(error) bool
	}{
		{"non-member", request.SendMessageRequest{RoomId: roomId, Text: "hi", SenderId: "X"}, errorx.IsPermissionDenied},
		{"blank text", request.SendMessageRequest{RoomId: roomId, Text: "   ", SenderId: "V"}, errorx.IsValidation},
		{"too long", request.SendMessageRequest{RoomId: roomId, Text: strings.Repeat("a", 4001), SenderId: "V"}, errorx.IsValidation},
		{"system type from member", request.SendMessageRequest{RoomId: roomId, Text: "x", SenderId: "V", Type: model.MessageTypeSystem}, errorx.IsPermissionDenied},
		{"unknown reply", request.SendMessageRequest{RoomId: roomId, Text: "x", SenderId: "V", ReplyTo: "404"}, errorx.IsNotFound},
		{"unknown room", request.SendMessageRequest{RoomId: "deal_A_B", Text: "x", SenderId: "V"}, errorx.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.SendMessage(ctx, tt.req); !tt.check(err) {
				t.Fatalf("SendMessage error = %v", err)
			}
		})
	}

	aiId, err := s.SendMessage(ctx, request.SendMessageRequest{
		RoomId: roomId, Text: "Summary ready", SenderId: constants.SYSTEM_ACTOR_ID, Type: model.MessageTypeAIReply,
	})
	if err != nil {
		t.Fatal(err)
	}
	msgs, _ := s.ListMessages(ctx, roomId, "F", false)
	if m := findMessage(msgs, aiId); m == nil || m.Type != model.MessageTypeAIReply || m.SenderName != constants.SYSTEM_ACTOR_NAME {
		t.Fatalf("ai reply = %+v", m)
	}
}

func TestMessagesOrderedWithReplies(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	first := send(t, s, roomId, "F", "term sheet attached soon")
	reply, err := s.SendMessage(ctx, request.SendMessageRequest{RoomId: roomId, Text: "great", SenderId: "V", ReplyTo: first})
	if err != nil {
		t.Fatal(err)
	}
	msgs, _ := s.ListMessages(ctx, roomId, "V", false)
	if len(msgs) != 3 || msgs[1].MessageId != first || msgs[2].MessageId != reply {
		t.Fatalf("order = %+v", msgs)
	}
	if msgs[2].ReplyTo != first || msgs[2].SenderName != "Venture" {
		t.Fatalf("reply = %+v", msgs[2])
	}
	if len(msgs[1].ReadBy) != 1 || msgs[1].ReadBy[0] != "F" {
		t.Fatalf("author should have read own message, readBy = %v", msgs[1].ReadBy)
	}
	if err := s.MarkRead(ctx, roomId, first, "V"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkRead(ctx, roomId, first, "V"); err != nil {
		t.Fatal(err)
	}
	msgs, _ = s.ListMessages(ctx, roomId, "V", false)
	if got := findMessage(msgs, first).ReadBy; len(got) != 2 {
		t.Fatalf("readBy = %v, want 2 readers", got)
	}
}

func TestReactionToggles(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	msgId := send(t, s, roomId, "F", "ship it")

	for i, want := range []bool{true, false, true} {
		got, err := s.React(ctx, roomId, msgId, "V", "👍")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("React #%d = %v, want %v", i+1, got, want)
		}
	}
	msgs, _ := s.ListMessages(ctx, roomId, "F", false)
	if r := findMessage(msgs, msgId).Reactions["👍"]; len(r) != 1 || r[0] != "V" {
		t.Fatalf("reactions = %v", r)
	}
	if _, err := s.React(ctx, roomId, msgId, "X", "👍"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("non-member React error = %v, want PermissionDenied", err)
	}
}

func TestEditMessage(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	msgId := send(t, s, roomId, "V", "typo")

	if err := s.EditMessage(ctx, roomId, msgId, "F", "hijack"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("non-author edit error = %v, want PermissionDenied", err)
	}
	if err := s.EditMessage(ctx, roomId, msgId, "V", "fixed"); err != nil {
		t.Fatal(err)
	}
	msgs, _ := s.ListMessages(ctx, roomId, "V", false)
	m := findMessage(msgs, msgId)
	if m.Text != "fixed" || !m.IsEdited || m.EditedAt == nil {
		t.Fatalf("edited = %+v", m)
	}
}

func TestSoftDeleteRoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	own := send(t, s, roomId, "V", "oops")
	other := send(t, s, roomId, "V", "spam")

	if err := s.DeleteMessage(ctx, roomId, own, "V"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteMessage(ctx, roomId, own, "V"); err != nil {
		t.Fatalf("repeat delete error = %v, want nil", err)
	}
	if err := s.DeleteMessage(ctx, roomId, other, "X"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("non-member delete error = %v, want PermissionDenied", err)
	}
	if err := s.DeleteMessage(ctx, roomId, other, "F"); err != nil {
		t.Fatal(err)
	}

	visible, _ := s.ListMessages(ctx, roomId, "V", false)
	if findMessage(visible, own) != nil || findMessage(visible, other) != nil {
		t.Fatal("deleted messages must not appear in default reads")
	}
	all, err := s.ListMessages(ctx, roomId, "F", true)
	if err != nil {
		t.Fatal(err)
	}
	if m := findMessage(all, own); m == nil || !m.IsDeleted {
		t.Fatalf("deleted message should remain stored, got %+v", m)
	}
	if _, err := s.ListMessages(ctx, roomId, "V", true); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member includeDeleted error = %v, want PermissionDenied", err)
	}
	if err := s.EditMessage(ctx, roomId, own, "V", "back"); !errorx.IsValidation(err) {
		t.Fatalf("edit deleted error = %v, want ValidationFailed", err)
	}

	entries, _ := s.ListAudit(ctx, roomId, "F")
	deletes := 0
	for _, e := range entries {
		if e.Action == model.AuditMessageDelete {
			deletes++
		}
	}
	if deletes != 1 {
		t.Fatalf("message_delete entries = %d, want 1 (moderation only)", deletes)
	}
}

func TestPinAndUnpin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	msgId := send(t, s, roomId, "V", "closing date: friday")

	if err := s.Pin(ctx, roomId, msgId, "V"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("member pin error = %v, want PermissionDenied", err)
	}
	if err := s.Pin(ctx, roomId, msgId, "F"); err != nil {
		t.Fatal(err)
	}
	if err := s.Pin(ctx, roomId, msgId, "F"); err != nil {
		t.Fatal(err)
	}
	view, _ := s.GetRoom(ctx, roomId, "V")
	if len(view.PinnedMessages) != 1 || view.PinnedMessages[0] != msgId {
		t.Fatalf("pinned = %v", view.PinnedMessages)
	}
	msgs, _ := s.ListMessages(ctx, roomId, "V", false)
	if !findMessage(msgs, msgId).IsPinned {
		t.Fatal("message should be flagged pinned")
	}

	if err := s.Unpin(ctx, roomId, msgId, "F"); err != nil {
		t.Fatal(err)
	}
	view, _ = s.GetRoom(ctx, roomId, "V")
	if len(view.PinnedMessages) != 0 {
		t.Fatalf("pinned after unpin = %v", view.PinnedMessages)
	}

	entries, _ := s.ListAudit(ctx, roomId, "F")
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Action]++
	}
	if counts[model.AuditPin] != 1 || counts[model.AuditUnpin] != 1 {
		t.Fatalf("audit counts = %v", counts)
	}
}

func TestSubscribeMessagesStreamsChanges(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)

	if _, err := s.SubscribeMessages(ctx, roomId, "X"); !errorx.IsPermissionDenied(err) {
		t.Fatalf("non-member subscribe error = %v, want PermissionDenied", err)
	}
	sub, err := s.SubscribeMessages(ctx, roomId, "V")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	waitFor(t, sub.C, func(msgs []respond.MessageView) bool { return len(msgs) == 1 })
	msgId := send(t, s, roomId, "F", "welcome")
	waitFor(t, sub.C, func(msgs []respond.MessageView) bool { return findMessage(msgs, msgId) != nil })

	if err := s.DeleteMessage(ctx, roomId, msgId, "F"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, sub.C, func(msgs []respond.MessageView) bool { return findMessage(msgs, msgId) == nil })

	if err := s.RemoveMember(ctx, roomId, "V", "V"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, sub.C, func(msgs []respond.MessageView) bool { return len(msgs) == 0 })
}

func createdAt(t *testing.T, s *chatRoomService, messageId string) time.Time {
	t.Helper()
	msg, err := s.repos.Message.FindByUuid(context.Background(), messageId)
	if err != nil {
		t.Fatal(err)
	}
	return msg.CreatedAt
}

func messageIds(views []respond.MessageView) []string {
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.MessageId)
	}
	return ids
}

func TestSearchMessages(t *testing.T) {
	s, _ := newTestService(t)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()
	roomId := createDeal(t, s)

	a := send(t, s, roomId, "F", "valuation?")
	b := send(t, s, roomId, "V", "20M pre")
	c := send(t, s, roomId, "F", "deal")
	d := send(t, s, roomId, "F", "oops")
	if err := s.DeleteMessage(ctx, roomId, d, "F"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		filters request.MessageSearchFilters
		want    []string
	}{
		{"by sender newest first without deleted", request.MessageSearchFilters{From: "F"}, []string{c, a}},
		{"by type", request.MessageSearchFilters{Type: model.MessageTypeText, From: "V"}, []string{b}},
		{"time window is exclusive", request.MessageSearchFilters{
			After:  createdAt(t, s, a),
			Before: createdAt(t, s, d),
		}, []string{c, b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := s.SearchMessages(ctx, roomId, "V", tt.filters)
			if err != nil {
				t.Fatal(err)
			}
			got := messageIds(views)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}

	system, err := s.SearchMessages(ctx, roomId, "F", request.MessageSearchFilters{Type: model.MessageTypeSystem})
	if err != nil {
		t.Fatal(err)
	}
	if len(system) == 0 || system[0].SenderId != constants.SYSTEM_ACTOR_ID {
		t.Fatalf("system messages = %+v", system)
	}

	if _, err := s.SearchMessages(ctx, roomId, "X", request.MessageSearchFilters{}); !errorx.IsPermissionDenied(err) {
		t.Fatalf("outsider search error = %v, want PermissionDenied", err)
	}
	window := request.MessageSearchFilters{After: createdAt(t, s, c), Before: createdAt(t, s, a)}
	if _, err := s.SearchMessages(ctx, roomId, "F", window); errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("inverted window error = %v, want InvalidParam", err)
	}
}

func TestSearchMessagesReturnsNewestHundred(t *testing.T) {
	s, _ := newTestService(t)
	roomId := createDeal(t, s)
	var last string
	for i := 0; i < constants.SEARCH_LIMIT+5; i++ {
		last = send(t, s, roomId, "V", "ping")
	}
	views, err := s.SearchMessages(context.Background(), roomId, "F", request.MessageSearchFilters{From: "V"})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != constants.SEARCH_LIMIT || views[0].MessageId != last {
		t.Fatalf("got %d results, first = %s, want %d starting with %s", len(views), views[0].MessageId, constants.SEARCH_LIMIT, last)
	}
}

func TestClosedRoomRejectsReactionsPinsAndReads(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	roomId := createDeal(t, s)
	msgId := send(t, s, roomId, "V", "final numbers")
	if err := s.CloseRoom(ctx, roomId, "F"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.React(ctx, roomId, msgId, "F", "👍"); !errorx.IsValidation(err) {
		t.Fatalf("React error = %v, want ValidationFailed", err)
	}
	if err := s.Pin(ctx, roomId, msgId, "F"); !errorx.IsValidation(err) {
		t.Fatalf("Pin error = %v, want ValidationFailed", err)
	}
	if err := s.Unpin(ctx, roomId, msgId, "F"); !errorx.IsValidation(err) {
		t.Fatalf("Unpin error = %v, want ValidationFailed", err)
	}
	if err := s.MarkRead(ctx, roomId, msgId, "F"); !errorx.IsValidation(err) {
		t.Fatalf("MarkRead error = %v, want ValidationFailed", err)
	}

	msgs, _ := s.ListMessages(ctx, roomId, "F", false)
	got := findMessage(msgs, msgId)
	if got == nil || len(got.Reactions) != 0 || got.IsPinned || len(got.ReadBy) != 1 {
		t.Fatalf("closed room message changed: %+v", got)
	}
}
