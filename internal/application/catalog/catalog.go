// Package catalog 提供写作模板注册表
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"inkflow-ai-api/internal/domain/entity"
	apperrors "inkflow-ai-api/pkg/errors"
)

//go:embed templates.yaml
var builtinTemplates []byte

type document struct {
	Templates []entity.Template `yaml:"templates"`
}

// Catalog 只读模板注册表，启动后不再修改
type Catalog struct {
	templates []entity.Template
	index     map[string]int
}

// New 从模板定义创建注册表，校验字段约束并拒绝重复 ID
func New(templates []entity.Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("catalog: no templates defined")
	}
	c := &Catalog{
		templates: make([]entity.Template, 0, len(templates)),
		index:     make(map[string]int, len(templates)),
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate template id %s", t.ID)
		}
		c.index[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// Parse 解析 YAML 模板定义
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse templates: %w", err)
	}
	return New(doc.Templates)
}

// Builtin 加载内置模板集
func Builtin() (*Catalog, error) {
	return Parse(builtinTemplates)
}

// MustBuiltin 加载内置模板集，失败时 panic
func MustBuiltin() *Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// List 按声明顺序返回全部模板
func (c *Catalog) List() []entity.Template {
	out := make([]entity.Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Get 根据 ID 获取模板
func (c *Catalog) Get(id string) (entity.Template, error) {
	i, ok := c.index[id]
	if !ok {
		return entity.Template{}, apperrors.New(apperrors.CodeTemplateNotFound, "template not found").
			WithDetail(fmt.Sprintf("template %q is not defined", id))
	}
	return c.templates[i], nil
}

// Default 返回会话初始选中的模板（第一个）
func (c *Catalog) Default() entity.Template {
	return c.templates[0]
}
