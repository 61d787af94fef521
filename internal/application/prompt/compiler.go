// Package prompt 将模板与表单数据编译为提示词
package prompt

import (
	"strings"

	"inkflow-ai-api/internal/domain/entity"
)

const (
	taskHeader        = "Task: "
	generationTrailer = "\nPlease generate the content based on the details above."
)

// Compiled 编译结果
type Compiled struct {
	SystemInstruction string
	UserPrompt        string
}

// Compile 按模板声明的字段顺序生成用户提示词，系统指令原样复制
//
// 表单中缺失的字段输出空值行；必填校验由调用方负责。
func Compile(t entity.Template, data entity.FormData) Compiled {
	var b strings.Builder
	b.WriteString(taskHeader)
	b.WriteString(t.Name)
	b.WriteString("\n\n")
	for _, f := range t.Fields {
		b.WriteString(f.DisplayLabel())
		b.WriteString(": ")
		b.WriteString(data[f.ID])
		b.WriteByte('\n')
	}
	b.WriteString(generationTrailer)

	return Compiled{
		SystemInstruction: t.SystemInstruction,
		UserPrompt:        b.String(),
	}
}
