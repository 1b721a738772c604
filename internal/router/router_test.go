package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dao/memory"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/handler"
	"raft_chat_server/internal/https_server"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/infrastructure/storage"
	"raft_chat_server/internal/service"
	"raft_chat_server/pkg/errorx"
	"raft_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt.Init("test-secret", 15, 168)
	if err := handler.InitTrans("en"); err != nil {
		t.Fatalf("init translator: %v", err)
	}

	conf := &config.Config{}
	conf.MainConfig.Mode = "test"
	conf.StaticSrcConfig.StaticFilePath = t.TempDir()
	conf.StaticSrcConfig.StagingFilePath = t.TempDir()
	conf.ApplyDefaults()

	f := feed.NewChannelFeed()
	t.Cleanup(func() { _ = f.Close() })
	svcs := service.NewServices(service.Deps{
		Repos:    memory.NewStore().Repositories(),
		Feed:     f,
		Notifier: notify.NewLogNotifier(),
		Blobs:    storage.NewLocalStore(conf.StaticSrcConfig.StagingFilePath, conf.StaticSrcConfig.StaticFilePath, conf.StaticSrcConfig.PublicBaseUrl),
		Room:     conf.RoomConfig,
	})

	server := httptest.NewServer(https_server.Init(handler.NewHandlers(svcs), conf))
	t.Cleanup(server.Close)
	return &testServer{t: t, server: server, client: &http.Client{Timeout: 5 * time.Second}}
}

func accessToken(t *testing.T, userId, name, role string) string {
	t.Helper()
	token, err := jwt.GenerateAccessToken(jwt.Identity{UserID: userId, UserName: name, Role: role})
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	return token
}

func mustJSON(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func (s *testServer) do(method, path, token, contentType string, body io.Reader) (*http.Response, envelope) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, body)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.t.Fatalf("do request %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

func (s *testServer) post(path, token string, body any) envelope {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, path, token, "application/json", mustJSON(s.t, body))
	if resp.StatusCode != http.StatusOK {
		s.t.Fatalf("%s status=%d", path, resp.StatusCode)
	}
	return env
}

func (s *testServer) get(path, token string) envelope {
	s.t.Helper()
	resp, env := s.do(http.MethodGet, path, token, "", nil)
	if resp.StatusCode != http.StatusOK {
		s.t.Fatalf("%s status=%d", path, resp.StatusCode)
	}
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	if env.Code != errorx.CodeSuccess {
		t.Fatalf("expected success, got code=%d msg=%v", env.Code, env.Msg)
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func createDeal(s *testServer, token string) string {
	s.t.Helper()
	env := s.post("/room/createOrGet", token, map[string]any{
		"kind":         "deal",
		"initiator":    map[string]string{"id": "F", "name": "Founder", "role": "founder"},
		"counterpart":  map[string]string{"id": "V", "name": "Venture", "role": "vc"},
		"projectId":    "P123",
		"projectTitle": "Orbit",
	})
	return decode[respond.CreateRoomRespond](s.t, env).RoomId
}

// ==================== 鉴权 ====================

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(http.MethodGet, "/room/list", "", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Code != errorx.CodeUnauthorized {
		t.Fatalf("expected 401, got status=%d code=%d", resp.StatusCode, env.Code)
	}

	refresh, _, err := jwt.GenerateRefreshToken(jwt.Identity{UserID: "F", Role: "founder"})
	if err != nil {
		t.Fatal(err)
	}
	resp, _ = s.do(http.MethodGet, "/room/list", refresh, "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh token must not authorize api calls, got %d", resp.StatusCode)
	}
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	s := newTestServer(t)

	access := accessToken(t, "F", "Founder", "founder")
	if env := s.post("/auth/refresh", "", map[string]string{"refreshToken": access}); env.Code != errorx.CodeUnauthorized {
		t.Fatalf("access token must not refresh, got code=%d", env.Code)
	}

	refresh, _, err := jwt.GenerateRefreshToken(jwt.Identity{UserID: "F", UserName: "Founder", Role: "founder"})
	if err != nil {
		t.Fatal(err)
	}
	out := decode[map[string]string](t, s.post("/auth/refresh", "", map[string]string{"refreshToken": refresh}))
	claims, err := jwt.ParseToken(out["accessToken"])
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != jwt.SubjectAccess || claims.UserID != "F" || claims.Role != "founder" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

// ==================== 房间与消息 ====================

func TestDealRoomOverHTTP(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	vc := accessToken(t, "V", "Venture", "vc")
	outsider := accessToken(t, "X", "Stranger", "vc")

	roomId := createDeal(s, founder)
	if roomId != "deal_F_V_P123" {
		t.Fatalf("unexpected room id %q", roomId)
	}
	if again := createDeal(s, vc); again != roomId {
		t.Fatalf("second trigger should return the same room, got %q", again)
	}

	rooms := decode[[]respond.RoomView](t, s.get("/room/list", vc))
	if len(rooms) != 1 || rooms[0].RoomId != roomId {
		t.Fatalf("vc should see the deal room, got %+v", rooms)
	}

	// 身份只取 Token，请求体里的 senderId 被忽略
	sent := decode[map[string]string](t, s.post("/message/send", vc, map[string]string{
		"roomId": roomId, "text": "hello founder", "senderId": "F",
	}))
	if sent["messageId"] == "" {
		t.Fatal("expected message id")
	}

	messages := decode[[]respond.MessageView](t, s.get("/message/list?roomId="+roomId, founder))
	last := messages[len(messages)-1]
	if last.Text != "hello founder" || last.SenderId != "V" || last.SenderName != "Venture" {
		t.Fatalf("unexpected last message %+v", last)
	}

	if env := s.get("/message/list?roomId="+roomId, outsider); env.Code != errorx.CodePermissionDenied {
		t.Fatalf("outsider should be denied, got code=%d", env.Code)
	}
	env := s.post("/message/send", founder, map[string]string{"roomId": roomId})
	if fields, ok := env.Msg.(map[string]any); env.Code != errorx.CodeInvalidParam || !ok || fields["text"] == nil {
		t.Fatalf("missing text should be reported by field name, got code=%d msg=%v", env.Code, env.Msg)
	}
	if env := s.post("/room/archive", vc, map[string]string{"roomId": roomId}); env.Code != errorx.CodePermissionDenied {
		t.Fatalf("plain member cannot archive, got code=%d", env.Code)
	}
}

func TestInviteJoinOverHTTP(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	guest := accessToken(t, "G", "Guest", "agency")
	roomId := createDeal(s, founder)

	invite := decode[respond.InviteRespond](t, s.post("/invite/generate", founder, map[string]any{"roomId": roomId, "maxUses": 1}))
	joined := decode[map[string]string](t, s.post("/invite/join", guest, map[string]string{"code": invite.Code}))
	if joined["roomId"] != roomId {
		t.Fatalf("unexpected join result %+v", joined)
	}

	members := decode[[]respond.MemberView](t, s.get("/room/member/list?roomId="+roomId, guest))
	found := false
	for _, m := range members {
		if m.UserId == "G" && m.DisplayName == "Guest" {
			found = true
		}
	}
	if !found {
		t.Fatalf("guest should be a member, got %+v", members)
	}
}

func TestSearchMessagesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	vc := accessToken(t, "V", "Venture", "vc")
	outsider := accessToken(t, "X", "Outsider", "vc")
	roomId := createDeal(s, founder)

	for _, text := range []string{"first", "second"} {
		if env := s.post("/message/send", vc, map[string]string{"roomId": roomId, "text": text}); env.Code != errorx.CodeSuccess {
			t.Fatalf("send failed: %d %v", env.Code, env.Msg)
		}
	}

	found := decode[[]respond.MessageView](t, s.get("/message/search?roomId="+roomId+"&from=V&after=2000-01-01T00:00:00Z", founder))
	if len(found) != 2 || found[0].Text != "second" || found[1].Text != "first" {
		t.Fatalf("unexpected search result %+v", found)
	}
	if env := s.get("/message/search?roomId="+roomId+"&before=yesterday", founder); env.Code != errorx.CodeInvalidParam {
		t.Fatalf("bad time should be a param error, got code=%d", env.Code)
	}
	if env := s.get("/message/search?roomId="+roomId, outsider); env.Code != errorx.CodePermissionDenied {
		t.Fatalf("outsider search code=%d", env.Code)
	}
}

// ==================== 文件 ====================

func (s *testServer) uploadPDF(token, roomId, name string) string {
	s.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("roomId", roomId)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		s.t.Fatal(err)
	}
	_, _ = part.Write([]byte("%PDF-1.4\n% pitch deck\n"))
	_ = w.Close()

	_, env := s.do(http.MethodPost, "/file/upload", token, w.FormDataContentType(), &body)
	fileId := decode[map[string]string](s.t, env)["fileId"]
	if fileId == "" {
		s.t.Fatalf("expected file id, got code=%d msg=%v", env.Code, env.Msg)
	}
	return fileId
}

// staticStatus 不带 token 直接请求静态目录
func (s *testServer) staticStatus(path string) int {
	s.t.Helper()
	resp, err := s.client.Get(s.server.URL + path)
	if err != nil {
		s.t.Fatal(err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestFileUploadAndReviewOverHTTP(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	vc := accessToken(t, "V", "Venture", "vc")
	roomId := createDeal(s, founder)

	fileId := s.uploadPDF(vc, roomId, "deck.pdf")
	if status := s.staticStatus("/static/files/" + roomId + "/" + fileId + ".pdf"); status != http.StatusNotFound {
		t.Fatalf("pending file served without review, status=%d", status)
	}

	if env := s.get("/file/get?fileId="+fileId, founder); env.Code != errorx.CodeValidationFailed {
		t.Fatalf("pending file must not be served, got code=%d", env.Code)
	}
	queue := decode[[]respond.FileView](t, s.get("/file/list?roomId="+roomId+"&status=pending", founder))
	if len(queue) != 1 || queue[0].FileId != fileId || queue[0].Url != "" {
		t.Fatalf("unexpected review queue %+v", queue)
	}

	if env := s.post("/file/review", vc, map[string]string{"fileId": fileId, "decision": "approved"}); env.Code != errorx.CodePermissionDenied {
		t.Fatalf("uploader cannot review, got code=%d", env.Code)
	}
	if env := s.post("/file/review", founder, map[string]string{"fileId": fileId, "decision": "approved"}); env.Code != errorx.CodeSuccess {
		t.Fatalf("review failed: %d %v", env.Code, env.Msg)
	}

	file := decode[respond.FileView](t, s.get("/file/get?fileId="+fileId, vc))
	if file.Status != "approved" || !strings.HasPrefix(file.Url, "/static/files/") {
		t.Fatalf("unexpected file %+v", file)
	}
	messages := decode[[]respond.MessageView](t, s.get("/message/list?roomId="+roomId, vc))
	last := messages[len(messages)-1]
	if last.File == nil || last.File.FileId != fileId || last.SenderId != "V" {
		t.Fatalf("approved file should be posted by uploader, got %+v", last)
	}

	if status := s.staticStatus(file.Url); status != http.StatusOK {
		t.Fatalf("static file status=%d", status)
	}
}

func TestRejectedFileIsNeverServed(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	vc := accessToken(t, "V", "Venture", "vc")
	roomId := createDeal(s, founder)

	fileId := s.uploadPDF(vc, roomId, "leak.pdf")
	guessed := "/static/files/" + roomId + "/" + fileId + ".pdf"
	if env := s.post("/file/review", founder, map[string]string{"fileId": fileId, "decision": "rejected"}); env.Code != errorx.CodeSuccess {
		t.Fatalf("review failed: %d %v", env.Code, env.Msg)
	}
	if status := s.staticStatus(guessed); status != http.StatusNotFound {
		t.Fatalf("rejected file served, status=%d", status)
	}
	if env := s.get("/file/get?fileId="+fileId, vc); env.Code != errorx.CodeNotFound {
		t.Fatalf("rejected file lookup code=%d", env.Code)
	}
}

// ==================== WebSocket ====================

func TestMessageStreamOverWebSocket(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	vc := accessToken(t, "V", "Venture", "vc")
	roomId := createDeal(s, founder)

	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws/messages?roomId=" + roomId + "&token=" + vc
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	var first []respond.MessageView
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}

	s.post("/message/send", founder, map[string]string{"roomId": roomId, "text": "live"})

	for {
		var snapshot []respond.MessageView
		if err := conn.ReadJSON(&snapshot); err != nil {
			t.Fatalf("stream ended before the new message arrived: %v", err)
		}
		if len(snapshot) > len(first) && snapshot[len(snapshot)-1].Text == "live" {
			return
		}
	}
}

func TestWebSocketRejectsNonMember(t *testing.T) {
	s := newTestServer(t)
	founder := accessToken(t, "F", "Founder", "founder")
	outsider := accessToken(t, "X", "Stranger", "vc")
	roomId := createDeal(s, founder)

	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws/messages?roomId=" + roomId + "&token=" + outsider
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("outsider should not be able to subscribe")
	}
}
