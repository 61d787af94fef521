// Package entity 定义领域实体
package entity

import (
	"fmt"
	"slices"
)

// FieldKind 字段类型
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindTextarea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
)

// Field 模板中的一个结构化输入槽位
type Field struct {
	ID           string    `json:"id" yaml:"id"`
	Label        string    `json:"label" yaml:"label"`
	Kind         FieldKind `json:"type" yaml:"type"`
	Placeholder  string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options      []string  `json:"options,omitempty" yaml:"options,omitempty"`
	DefaultValue string    `json:"defaultValue,omitempty" yaml:"default_value,omitempty"`
}

// Required 文本类字段必填；下拉字段总有取值
func (f Field) Required() bool {
	return f.Kind == FieldKindText || f.Kind == FieldKindTextarea
}

// DisplayLabel 返回提示词中使用的标签，缺省时回退到字段 ID
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// Validate 校验字段定义
func (f Field) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("field id is required")
	}
	switch f.Kind {
	case FieldKindText, FieldKindTextarea:
		if len(f.Options) > 0 {
			return fmt.Errorf("field %s: options are only allowed on select fields", f.ID)
		}
	case FieldKindSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %s: select field must declare options", f.ID)
		}
		if f.DefaultValue != "" && !slices.Contains(f.Options, f.DefaultValue) {
			return fmt.Errorf("field %s: default value %q is not one of the options", f.ID, f.DefaultValue)
		}
	default:
		return fmt.Errorf("field %s: unknown kind %q", f.ID, f.Kind)
	}
	return nil
}

// Template 内容生成模板
type Template struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Description       string  `json:"description" yaml:"description"`
	Icon              string  `json:"icon" yaml:"icon"`
	SystemInstruction string  `json:"systemInstruction" yaml:"system_instruction"`
	Fields            []Field `json:"fields" yaml:"fields"`
}

// Validate 校验模板定义及其所有字段
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("template %s: name is required", t.ID)
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("template %s: at least one field is required", t.ID)
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("template %s: duplicate field id %s", t.ID, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// Field 按 ID 查找字段
func (t Template) Field(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultFormData 按字段默认值构建一份全新的表单数据
func (t Template) DefaultFormData() FormData {
	data := make(FormData, len(t.Fields))
	for _, f := range t.Fields {
		data[f.ID] = f.DefaultValue
	}
	return data
}

// Title 根据第一个字段的取值生成历史记录标题，为空时使用模板名称
func (t Template) Title(data FormData) string {
	if len(t.Fields) > 0 {
		if v := data[t.Fields[0].ID]; v != "" {
			return v
		}
	}
	return t.Name
}

// MissingRequired 返回必填但为空的字段，按声明顺序
func (t Template) MissingRequired(data FormData) []Field {
	var missing []Field
	for _, f := range t.Fields {
		if f.Required() && data[f.ID] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// FormData 字段 ID 到当前取值的映射
type FormData map[string]string

// Clone 复制表单数据
func (d FormData) Clone() FormData {
	out := make(FormData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
