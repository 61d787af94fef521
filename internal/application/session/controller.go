package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
	"inkflow-ai-api/pkg/metrics"
)

// ErrSuperseded 生成过程中切换了模板或载入了历史，本次结果被丢弃
var ErrSuperseded = apperrors.New(apperrors.CodeConflict, "generation superseded by a newer selection")

// TemplateCatalog 模板注册表
type TemplateCatalog interface {
	List() []entity.Template
	Get(id string) (entity.Template, error)
	Default() entity.Template
}

// Generator 生成客户端
type Generator interface {
	Generate(ctx context.Context, req entity.GenerationRequest, onPartial func(accumulated string)) (string, error)
}

// Clipboard 系统剪贴板
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Option 控制器选项
type Option func(*Controller)

// WithClipboard 设置剪贴板实现
func WithClipboard(cb Clipboard) Option {
	return func(c *Controller) { c.clipboard = cb }
}

// WithModelPresets 设置模型预设；初始模型为快速档
func WithModelPresets(p ModelPresets) Option {
	return func(c *Controller) {
		if p.Fast != "" {
			c.presets.Fast = p.Fast
		}
		if p.Pro != "" {
			c.presets.Pro = p.Pro
		}
	}
}

// WithClock 设置时间源
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller 会话控制器，独占会话状态
//
// 所有方法可并发调用；同一时刻只允许一次生成。每次生成携带一个序号，
// 序号不再是当前值的请求不会再更新视图，也不会写入历史。
type Controller struct {
	catalog   TemplateCatalog
	generator Generator
	history   repository.HistoryRepository
	clipboard Clipboard
	presets   ModelPresets
	now       func() time.Time

	mu      sync.Mutex
	state   State
	records []entity.HistoryRecord
	seq     uint64
	cancel  context.CancelFunc
}

// NewController 创建会话控制器，选中第一个模板并载入历史
func NewController(ctx context.Context, catalog TemplateCatalog, generator Generator, history repository.HistoryRepository, opts ...Option) *Controller {
	c := &Controller{
		catalog:   catalog,
		generator: generator,
		history:   history,
		presets:   DefaultModelPresets,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	tpl := catalog.Default()
	c.state = State{
		SelectedTemplate: tpl,
		FormData:         tpl.DefaultFormData(),
		Model:            c.presets.Fast,
	}
	c.records = history.List(ctx)
	metrics.HistoryRecords.Set(float64(len(c.records)))
	return c
}

// State 返回当前状态的副本
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// History 返回缓存的历史记录副本（最新在前）
func (c *Controller) History() []entity.HistoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.HistoryRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Templates 返回全部模板
func (c *Controller) Templates() []entity.Template {
	return c.catalog.List()
}

// ModelPresets 返回模型预设
func (c *Controller) ModelPresets() ModelPresets {
	return c.presets
}

// SelectTemplate 切换模板：重置表单为默认值，清空输出与错误
//
// 生成过程中切换会放弃正在进行的请求。
func (c *Controller) SelectTemplate(ctx context.Context, id string) (State, error) {
	tpl, err := c.catalog.Get(id)
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked(ctx)
	c.resetLocked(tpl)
	return c.state.clone(), nil
}

// UpdateField 保存字段的原始取值
func (c *Controller) UpdateField(id, value string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.SelectedTemplate.Field(id); !ok {
		return c.state.clone(), apperrors.New(apperrors.CodeInvalidParam, "unknown field").
			WithDetail(fmt.Sprintf("template %s has no field %q", c.state.SelectedTemplate.ID, id))
	}
	c.state.FormData[id] = value
	if !c.state.IsGenerating {
		c.state.Error = ""
	}
	return c.state.clone(), nil
}

// SelectModel 选择后续生成使用的模型，任意字符串原样转发
func (c *Controller) SelectModel(model string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m := strings.TrimSpace(model); m != "" {
		c.state.Model = m
	}
	return c.state.clone()
}

// DismissError 关闭错误提示
func (c *Controller) DismissError() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
	return c.state.clone()
}

// Validate 检查当前表单的必填字段
func (c *Controller) Validate() error {
	c.mu.Lock()
	missing := c.state.SelectedTemplate.MissingRequired(c.state.FormData)
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		labels = append(labels, f.DisplayLabel())
	}
	return apperrors.NewValidationError("required fields are empty").
		WithDetail(strings.Join(labels, ", "))
}

// Submit 生成内容，完成后写入历史
//
// onPartial 仅在本次请求仍是当前请求时以累积文本调用。失败时会话进入错误状态，
// 已显示的部分内容保留。
func (c *Controller) Submit(ctx context.Context, onPartial func(accumulated string)) (entity.HistoryRecord, error) {
	c.mu.Lock()
	if c.state.IsGenerating {
		c.mu.Unlock()
		return entity.HistoryRecord{}, apperrors.New(apperrors.CodeConflict, "a generation is already in progress")
	}
	c.seq++
	seq := c.seq
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	tpl := c.state.SelectedTemplate
	req := entity.NewGenerationRequest(tpl, c.state.FormData, c.state.Model)
	c.state.IsGenerating = true
	c.state.GeneratedContent = ""
	c.state.Error = ""
	c.mu.Unlock()
	defer cancel()

	ctx = logger.WithContext(ctx, logger.TemplateIDKey, tpl.ID)
	logger.Info(ctx, "generation started", "model", req.Model, "seq", seq)
	start := c.now()

	final, err := c.generator.Generate(reqCtx, req, func(acc string) {
		c.mu.Lock()
		current := c.seq == seq
		if current {
			c.state.GeneratedContent = acc
		}
		c.mu.Unlock()
		if current && onPartial != nil {
			onPartial(acc)
		}
	})

	elapsed := c.now().Sub(start)
	metrics.GenerationDuration.WithLabelValues(tpl.ID).Observe(elapsed.Seconds())

	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		metrics.GenerationTotal.WithLabelValues(tpl.ID, "superseded").Inc()
		logger.Warn(ctx, "generation superseded, result discarded", "seq", seq)
		return entity.HistoryRecord{}, ErrSuperseded
	}
	c.state.IsGenerating = false
	c.cancel = nil

	if err != nil {
		c.state.GeneratedContent = final
		c.state.Error = ErrorMessage(err)
		c.mu.Unlock()
		metrics.GenerationTotal.WithLabelValues(tpl.ID, "error").Inc()
		logger.Error(ctx, "generation failed", err, "partial_chars", len(final))
		return entity.HistoryRecord{}, err
	}

	c.state.GeneratedContent = final
	rec := entity.NewHistoryRecord(tpl.ID, tpl.Title(req.FormData), final, c.now())
	c.records = append([]entity.HistoryRecord{rec}, c.records...)
	c.mu.Unlock()

	metrics.GenerationTotal.WithLabelValues(tpl.ID, "success").Inc()
	metrics.GenerationOutputChars.WithLabelValues(tpl.ID).Observe(float64(len([]rune(final))))
	logger.Info(ctx, "generation completed", "chars", len(final), "duration_ms", elapsed.Milliseconds())

	// 持久化不受调用方取消影响；写入失败只记录日志，内存中的历史保持最新
	c.persist(context.WithoutCancel(ctx), func(pctx context.Context) error {
		_, err := c.history.Append(pctx, rec)
		return err
	})
	return rec, nil
}

// LoadHistoryItem 载入历史记录：切换到记录所属模板并显示其内容
//
// 表单不会恢复（未持久化），回到该模板的默认值。模板已不存在时状态不变。
func (c *Controller) LoadHistoryItem(ctx context.Context, id string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rec *entity.HistoryRecord
	for i := range c.records {
		if c.records[i].ID == id {
			rec = &c.records[i]
			break
		}
	}
	if rec == nil {
		return c.state.clone(), apperrors.New(apperrors.CodeHistoryNotFound, "history record not found")
	}

	tpl, err := c.catalog.Get(rec.TemplateID)
	if err != nil {
		logger.Warn(ctx, "history record refers to an unknown template", "template_id", rec.TemplateID, "record_id", id)
		return c.state.clone(), err
	}

	c.supersedeLocked(ctx)
	c.resetLocked(tpl)
	c.state.GeneratedContent = rec.Content
	return c.state.clone(), nil
}

// DeleteHistoryItem 删除一条历史记录，ID 不存在时为空操作
func (c *Controller) DeleteHistoryItem(ctx context.Context, id string) []entity.HistoryRecord {
	c.mu.Lock()
	next := make([]entity.HistoryRecord, 0, len(c.records))
	for _, r := range c.records {
		if r.ID != id {
			next = append(next, r)
		}
	}
	changed := len(next) != len(c.records)
	c.records = next
	c.mu.Unlock()

	if changed {
		c.persist(ctx, func(pctx context.Context) error {
			_, err := c.history.Remove(pctx, id)
			return err
		})
	}
	return c.History()
}

// ClearHistory 清空历史记录
func (c *Controller) ClearHistory(ctx context.Context) {
	c.mu.Lock()
	c.records = []entity.HistoryRecord{}
	c.mu.Unlock()

	c.persist(ctx, c.history.Clear)
}

// CopyOutput 把当前输出写入剪贴板；失败不改变会话状态
func (c *Controller) CopyOutput(ctx context.Context) error {
	content := c.State().GeneratedContent
	if content == "" {
		return nil
	}
	if c.clipboard == nil {
		return apperrors.New(apperrors.CodeServiceUnavailable, "clipboard is not available")
	}
	if err := c.clipboard.WriteText(ctx, content); err != nil {
		logger.Warn(ctx, "failed to copy output to clipboard", "error", err)
		return apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "failed to copy to clipboard")
	}
	return nil
}

// supersedeLocked 放弃正在进行的生成：取消其 context 并使其序号失效
func (c *Controller) supersedeLocked(ctx context.Context) {
	if !c.state.IsGenerating {
		return
	}
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.IsGenerating = false
	logger.Info(ctx, "in-flight generation abandoned", "template_id", c.state.SelectedTemplate.ID)
}

func (c *Controller) resetLocked(tpl entity.Template) {
	c.state.SelectedTemplate = tpl
	c.state.FormData = tpl.DefaultFormData()
	c.state.GeneratedContent = ""
	c.state.Error = ""
}

// persist 同步写入历史存储；存储降级不向用户暴露
func (c *Controller) persist(ctx context.Context, write func(context.Context) error) {
	if err := write(ctx); err != nil {
		logger.Warn(ctx, "history change kept in memory only", "error", err)
	}
}

// ErrorMessage 生成失败时显示在会话中的错误文案
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "generation cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	default:
		return apperrors.UserMessage(err)
	}
}
