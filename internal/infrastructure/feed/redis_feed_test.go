package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis 只实现 SUBSCRIBE / PUBLISH / PING 的 RESP2 服务端
// SUBSCRIBE 延迟 subscribeDelay 才生效并确认，模拟网络往返
type fakeRedis struct {
	ln             net.Listener
	subscribeDelay time.Duration

	mu   sync.Mutex
	subs map[string][]*fakeConn
}

type fakeConn struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (c *fakeConn) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.w.WriteString(s)
	_ = c.w.Flush()
}

func bulk(s string) string {
	return "$" + strconv.Itoa(len(s)) + "\r\n" + s + "\r\n"
}

func startFakeRedis(t *testing.T, subscribeDelay time.Duration) *fakeRedis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &fakeRedis{ln: ln, subscribeDelay: subscribeDelay, subs: make(map[string][]*fakeConn)}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()
	return srv
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected line %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(header[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func (s *fakeRedis) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	c := &fakeConn{w: bufio.NewWriter(conn)}
	subscribed := false
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		switch strings.ToUpper(args[0]) {
		case "SUBSCRIBE":
			time.Sleep(s.subscribeDelay)
			subscribed = true
			for i, ch := range args[1:] {
				s.mu.Lock()
				s.subs[ch] = append(s.subs[ch], c)
				s.mu.Unlock()
				c.write("*3\r\n" + bulk("subscribe") + bulk(ch) + ":" + strconv.Itoa(i+1) + "\r\n")
			}
		case "PUBLISH":
			s.mu.Lock()
			receivers := append([]*fakeConn(nil), s.subs[args[1]]...)
			s.mu.Unlock()
			for _, sub := range receivers {
				sub.write("*3\r\n" + bulk("message") + bulk(args[1]) + bulk(args[2]))
			}
			c.write(":" + strconv.Itoa(len(receivers)) + "\r\n")
		case "PING":
			if subscribed {
				c.write("*2\r\n" + bulk("pong") + bulk(""))
			} else {
				c.write("+PONG\r\n")
			}
		default:
			c.write("-ERR unknown command '" + args[0] + "'\r\n")
		}
	}
}

func TestRedisFeedDeliversPublishRightAfterSubscribe(t *testing.T) {
	srv := startFakeRedis(t, 100*time.Millisecond)
	client := redis.NewClient(&redis.Options{
		Addr:             srv.ln.Addr().String(),
		Protocol:         2,
		DisableIndentity: true,
	})
	defer client.Close()

	f := NewRedisFeed(client, "raft_test")
	defer f.Close()

	signals, cancel := f.Subscribe(RoomMessagesTopic("deal_F_V_P1"))
	defer cancel()
	if err := f.Publish(context.Background(), RoomMessagesTopic("deal_F_V_P1")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("publish issued right after Subscribe returned was lost")
	}
}
