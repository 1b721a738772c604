package repository

import "context"

// Transactor 事务执行器，由具体存储实现提供
// fn 内的所有操作要么全部成功，要么全部回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	Transactor Transactor       // 事务执行器
	Room       RoomRepository   // 房间 Repository
	Member     MemberRepository // 成员 Repository
	Message    MessageRepository
	Invite     InviteRepository
	File       FileRepository
	Audit      AuditRepository
	Report     ReportRepository
}

// Transaction 在事务中执行函数，fn 收到的是绑定到该事务的 Repositories
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.Transactor.Transaction(ctx, fn)
}
