// Package memory 提供 Repository 接口的内存实现
// 所有数据放在一个以 ID 为键的 arena 中，由一把互斥锁保护；
// 事务持有这把锁并在失败时恢复快照，语义与数据库事务一致。
// 用于单元测试和 driver = "memory" 的单机部署
package memory

import (
	"context"
	"fmt"
	"sync"

	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"
	"raft_chat_server/pkg/errorx"
)

// state 全部表数据，值语义存储，便于整体复制做回滚
type state struct {
	nextId    uint
	rooms     map[string]model.Room
	pins      map[string]map[string]model.RoomPin  // room -> message -> pin
	mutes     map[string]map[string]model.RoomMute // room -> user -> mute
	members   map[string]map[string]model.RoomMember
	messages  map[string]model.Message
	reactions map[string]model.MessageReaction // message|emoji|user
	reads     map[string]model.MessageRead     // message|user
	invites   map[string]model.Invite
	usages    []model.InviteUsage
	files     map[string]model.FileUpload
	audits    []model.AuditLog
	reports   map[string]model.Report
}

func newState() *state {
	return &state{
		rooms:     make(map[string]model.Room),
		pins:      make(map[string]map[string]model.RoomPin),
		mutes:     make(map[string]map[string]model.RoomMute),
		members:   make(map[string]map[string]model.RoomMember),
		messages:  make(map[string]model.Message),
		reactions: make(map[string]model.MessageReaction),
		reads:     make(map[string]model.MessageRead),
		invites:   make(map[string]model.Invite),
		files:     make(map[string]model.FileUpload),
		reports:   make(map[string]model.Report),
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyNested[V any](src map[string]map[string]V) map[string]map[string]V {
	dst := make(map[string]map[string]V, len(src))
	for k, v := range src {
		dst[k] = copyMap(v)
	}
	return dst
}

// clone 记录只以整值替换，不原地修改，所以浅拷贝值即可
func (s *state) clone() *state {
	return &state{
		nextId:    s.nextId,
		rooms:     copyMap(s.rooms),
		pins:      copyNested(s.pins),
		mutes:     copyNested(s.mutes),
		members:   copyNested(s.members),
		messages:  copyMap(s.messages),
		reactions: copyMap(s.reactions),
		reads:     copyMap(s.reads),
		invites:   copyMap(s.invites),
		usages:    append([]model.InviteUsage(nil), s.usages...),
		files:     copyMap(s.files),
		audits:    append([]model.AuditLog(nil), s.audits...),
		reports:   copyMap(s.reports),
	}
}

func (s *state) id() uint {
	s.nextId++
	return s.nextId
}

// Store 内存存储
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{data: newState()}
}

// view 绑定到 Store 的访问入口；locked 为 true 表示调用方已在事务中持有锁
type view struct {
	store  *Store
	locked bool
}

func (v view) run(fn func(st *state) error) error {
	if !v.locked {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.data)
}

// Transaction 持锁执行 fn，出错时恢复到执行前的快照
// 事务内嵌套调用直接复用当前事务
func (v view) Transaction(ctx context.Context, fn func(txRepos *repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return errorx.Wrap(err, errorx.CodeUnavailable, "transaction cancelled")
	}
	if v.locked {
		return fn(v.repos())
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	snapshot := v.store.data.clone()
	txView := view{store: v.store, locked: true}
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic in transaction: %v", rec)
			}
		}()
		return fn(txView.repos())
	}()
	if err != nil {
		v.store.data = snapshot
	}
	return err
}

func (v view) repos() *repository.Repositories {
	return &repository.Repositories{
		Transactor: v,
		Room:       roomRepository{v},
		Member:     memberRepository{v},
		Message:    messageRepository{v},
		Invite:     inviteRepository{v},
		File:       fileRepository{v},
		Audit:      auditRepository{v},
		Report:     reportRepository{v},
	}
}

// Repositories 返回绑定到该存储的 Repository 聚合
func (s *Store) Repositories() *repository.Repositories {
	return view{store: s}.repos()
}

func notFound(format string, args ...any) error {
	return errorx.Newf(errorx.CodeNotFound, format, args...)
}
