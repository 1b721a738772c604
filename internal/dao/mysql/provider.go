package mysql

import (
	"context"

	"raft_chat_server/internal/dao/repository"

	"gorm.io/gorm"
)

// gormTransactor 基于 db.Transaction 的事务执行器
// 事务内再次调用 Transaction 时 GORM 使用 SAVEPOINT
type gormTransactor struct {
	db *gorm.DB
}

func (t gormTransactor) Transaction(ctx context.Context, fn func(txRepos *repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Transactor: gormTransactor{db: db},
		Room:       NewRoomRepository(db),
		Member:     NewMemberRepository(db),
		Message:    NewMessageRepository(db),
		Invite:     NewInviteRepository(db),
		File:       NewFileRepository(db),
		Audit:      NewAuditRepository(db),
		Report:     NewReportRepository(db),
	}
}
