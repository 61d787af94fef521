// Package eino 为经由 Eino 的 OpenAI 兼容调用补充追踪与 Token 统计
//
// Gemini 适配器不经过 Eino，它在读取流时自行上报 Token 用量。
package eino

import (
	"sync"

	"github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var registerOnce sync.Once

// NewHandler 只关心 ChatModel 组件的回调处理器
func NewHandler() callbacks.Handler {
	return cbtemplate.NewHandlerHelper().
		ChatModel(newChatModelCallbackHandler()).
		Handler()
}

// Init 把 NewHandler 注册为全局回调；重复调用无副作用
func Init() {
	registerOnce.Do(func() {
		callbacks.AppendGlobalHandlers(NewHandler())
	})
}
