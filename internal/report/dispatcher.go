package report

import (
	"context"
	"fmt"
	"time"

	"reportbot/internal/activity"
	"reportbot/internal/delivery"
	"reportbot/pkg/logger"
	"reportbot/pkg/models"
)

// Generator 报告生成接口
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest, summary models.ActivitySummary, templatesText string) (string, error)
}

// TemplateSource 模板文本来源
type TemplateSource interface {
	LoadAll() (text string, names []string, err error)
}

// SampleSource 活动采样来源
type SampleSource interface {
	GetSamples(start, end time.Time) ([]*models.ActivitySample, error)
}

// Dispatcher 报告分发器
// 汇集当日活动摘要与模板文本，调用生成服务，并在调度触发时投递结果
type Dispatcher struct {
	samples   SampleSource
	templates TemplateSource
	generator Generator
	sinks     []delivery.Sink
}

// NewDispatcher 创建报告分发器
func NewDispatcher(samples SampleSource, templates TemplateSource, generator Generator, sinks []delivery.Sink) *Dispatcher {
	return &Dispatcher{
		samples:   samples,
		templates: templates,
		generator: generator,
		sinks:     sinks,
	}
}

// currentSummary 获取当日活动摘要
// 读取失败不阻断生成：降级为空摘要继续
func (d *Dispatcher) currentSummary() models.ActivitySummary {
	now := time.Now()
	start, end := activity.DayRange(now)

	samples, err := d.samples.GetSamples(start, end)
	if err != nil {
		logger.Warn("读取活动采样失败,使用空摘要继续生成: %v", err)
		samples = nil
	}

	return activity.Summarize(samples, now)
}

// Generate 按需生成报告
// 模板缺失不致命；生成调用不设内部超时，取消由 ctx 控制
func (d *Dispatcher) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GeneratedReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	summary := d.currentSummary()

	templatesText, names, err := d.templates.LoadAll()
	if err != nil {
		logger.Warn("加载模板失败,不附带模板继续生成: %v", err)
		templatesText = ""
		names = nil
	}
	if names == nil {
		names = []string{}
	}

	content, err := d.generator.Generate(ctx, req, summary, templatesText)
	if err != nil {
		return nil, fmt.Errorf("AI generation failed: %w", err)
	}

	return &models.GeneratedReport{
		ReportType:       req.ReportType,
		Content:          content,
		GeneratedAt:      time.Now(),
		BasedOnTemplates: names,
	}, nil
}

// DispatchScheduled 处理调度触发的报告
// 生成成功后逐个投递；单个投递目标失败只记录日志，不影响其余目标
func (d *Dispatcher) DispatchScheduled(sched *models.Schedule) error {
	req := &models.GenerationRequest{
		ReportType:      sched.ReportType,
		Tone:            sched.Tone,
		AdditionalNotes: sched.Notes,
	}

	// 调度触发没有外部调用方，生成时长不设上限
	result, err := d.Generate(context.Background(), req)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("[ReportBot] %s Report — %s",
		sched.ReportType.Title(), result.GeneratedAt.Format("January 2, 2006"))

	if len(d.sinks) == 0 {
		logger.Warn("未配置投递目标,报告已生成但无处投递 (schedule %d)", sched.ID)
		return nil
	}

	for _, sink := range d.sinks {
		if err := sink.Deliver(subject, result.Content); err != nil {
			logger.Error("投递失败 (%s, schedule %d): %v", sink.Name(), sched.ID, err)
			continue
		}
		logger.Info("定时报告已投递 (%s, schedule %d)", sink.Name(), sched.ID)
	}

	return nil
}
