package delivery

// Sink 报告投递目标
// 调度触发的报告生成完成后，由分发器逐个投递；单个投递失败不影响其他目标
type Sink interface {
	Name() string
	Deliver(subject, content string) error
}
