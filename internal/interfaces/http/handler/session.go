package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"inkflow-ai-api/internal/application/session"
	"inkflow-ai-api/internal/interfaces/http/dto"
	apperrors "inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
)

// SessionHandler 会话状态与生成
type SessionHandler struct {
	session *session.Controller
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(ctrl *session.Controller) *SessionHandler {
	return &SessionHandler{session: ctrl}
}

// GetSession 返回当前会话状态
// @Router /v1/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	dto.Success(c, h.session.State())
}

// SelectTemplate 切换模板；进行中的生成被放弃
// @Router /v1/session/template [put]
func (h *SessionHandler) SelectTemplate(c *gin.Context) {
	var req dto.SelectTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	state, err := h.session.SelectTemplate(c.Request.Context(), req.TemplateID)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, state)
}

// SelectModel 切换模型
// @Router /v1/session/model [put]
func (h *SessionHandler) SelectModel(c *gin.Context) {
	var req dto.SelectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	dto.Success(c, h.session.SelectModel(req.Model))
}

// UpdateFields 批量更新表单字段；任一字段不存在时不做任何修改
// @Router /v1/session/fields [patch]
func (h *SessionHandler) UpdateFields(c *gin.Context) {
	var req dto.UpdateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	tpl := h.session.State().SelectedTemplate
	for id := range req.Fields {
		if _, ok := tpl.Field(id); !ok {
			dto.FromError(c, apperrors.New(apperrors.CodeInvalidParam, "unknown field").WithDetail(id))
			return
		}
	}

	state := h.session.State()
	for id, value := range req.Fields {
		var err error
		state, err = h.session.UpdateField(id, value)
		if err != nil {
			// 模板在校验之后被切换
			dto.FromError(c, err)
			return
		}
	}
	dto.Success(c, state)
}

// DismissError 关闭错误提示
// @Router /v1/session/error [delete]
func (h *SessionHandler) DismissError(c *gin.Context) {
	dto.Success(c, h.session.DismissError())
}

// CopyOutput 把当前输出复制到服务端所在机器的剪贴板
// @Router /v1/session/copy [post]
func (h *SessionHandler) CopyOutput(c *gin.Context) {
	if err := h.session.CopyOutput(c.Request.Context()); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.NoContent(c)
}

type sseEvent struct {
	name string
	data any
	err  error
}

// Generate SSE 流式生成
// @Summary SSE 流式生成当前模板的内容
// @Description content 事件携带累积文本；结束时输出 done（包含历史记录）或 error（包含已生成的部分内容）
// @Produce text/event-stream
// @Router /v1/session/generate [post]
func (h *SessionHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.session.Validate(); err != nil {
		dto.FromError(c, err)
		return
	}

	events := make(chan sseEvent, 16)
	send := func(ev sseEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	// 客户端断开即取消请求 context，控制器随之放弃本次生成
	go func() {
		defer close(events)

		index := 0
		rec, err := h.session.Submit(ctx, func(acc string) {
			send(sseEvent{name: "content", data: dto.ContentEvent{Text: acc, Index: index}})
			index++
		})
		if err != nil {
			content := ""
			if !errors.Is(err, session.ErrSuperseded) {
				content = h.session.State().GeneratedContent
			}
			send(sseEvent{name: "error", data: dto.ErrorEvent{Message: session.ErrorMessage(err), Content: content}, err: err})
			return
		}
		send(sseEvent{name: "done", data: dto.DoneEvent{Record: rec}})
	}()

	// 响应头推迟到第一个事件：已有生成在进行时 Submit 立即拒绝，此时仍可返回 409
	var first sseEvent
	select {
	case ev, ok := <-events:
		if !ok {
			return
		}
		first = ev
	case <-ctx.Done():
		drain(events)
		return
	}
	if first.err != nil && apperrors.HasCode(first.err, apperrors.CodeConflict) && !errors.Is(first.err, session.ErrSuperseded) {
		drain(events)
		dto.FromError(c, first.err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	pending := &first
	c.Stream(func(w io.Writer) bool {
		if pending != nil {
			ev := *pending
			pending = nil
			c.SSEvent(ev.name, ev.data)
			return ev.name == "content"
		}
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.name, ev.data)
			return ev.name == "content"
		case <-ctx.Done():
			return false
		}
	})

	drain(events)
	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Info(ctx, "generate stream closed by client")
	}
}

// drain 等待生成 goroutine 退出
func drain(events <-chan sseEvent) {
	for range events {
	}
}
