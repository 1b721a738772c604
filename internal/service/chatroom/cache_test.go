package chatroom

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dao/memory"
	myredis "raft_chat_server/internal/dao/redis"
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/service/visibility"
)

// slowCache 内存缓存，异步任务延迟执行，模拟 Redis 往返
type slowCache struct {
	mu    sync.Mutex
	data  map[string]string
	delay time.Duration
	wg    sync.WaitGroup
}

func newSlowCache(delay time.Duration) *slowCache {
	return &slowCache{data: make(map[string]string), delay: delay}
}

func (c *slowCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *slowCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *slowCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *slowCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *slowCache) SubmitTask(action func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		time.Sleep(c.delay)
		action()
	}()
}

var _ myredis.AsyncCacheService = (*slowCache)(nil)

func newCachedTestService(t *testing.T, cache myredis.AsyncCacheService) *chatRoomService {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	f := feed.NewChannelFeed()
	t.Cleanup(func() { _ = f.Close() })
	return NewChatRoomService(
		memory.NewStore().Repositories(),
		cache,
		f,
		&recordingNotifier{},
		newTestBlobs(t),
		cfg.RoomConfig,
	)
}

func TestSubscribeRoomsWithCacheSeesNewRoom(t *testing.T) {
	cache := newSlowCache(20 * time.Millisecond)
	s := newCachedTestService(t, cache)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := s.SubscribeRooms(ctx, "V", visibility.RoleVC)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	waitFor(t, sub.C, func(v []respond.RoomView) bool { return len(v) == 0 })

	roomId := createDeal(t, s)
	waitFor(t, sub.C, func(v []respond.RoomView) bool { return len(v) == 1 && v[0].RoomId == roomId })

	// 迟到的回写不能覆盖新列表
	sub.Close()
	cache.wg.Wait()
	rooms, err := s.ListRooms(ctx, "V", visibility.RoleVC)
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 {
		t.Fatalf("ListRooms after cache settles = %d rooms, want 1", len(rooms))
	}
}

func TestStaleCacheFillIsIgnored(t *testing.T) {
	cache := newSlowCache(0)
	s := newCachedTestService(t, cache)
	ctx := context.Background()

	// 成员关系变化前读到的旧版本列表
	if _, err := s.ListRooms(ctx, "V", visibility.RoleVC); err != nil {
		t.Fatal(err)
	}
	cache.wg.Wait()
	if cache.data[myredis.RoomListKey("V")] == "" {
		t.Fatal("room list should be cached after a miss")
	}

	roomId := createDeal(t, s)
	rooms, err := s.ListRooms(ctx, "V", visibility.RoleVC)
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || rooms[0].RoomId != roomId {
		t.Fatalf("rooms = %+v, stale cache entry was served", rooms)
	}

	cache.wg.Wait()
	ids, ok := s.cachedRoomIds(ctx, myredis.RoomListKey("V"), cache.data[myredis.RoomListVersionKey("V")])
	if !ok || len(ids) != 1 || ids[0] != roomId {
		t.Fatalf("cached ids = %v ok=%v, want refreshed entry", ids, ok)
	}
}
