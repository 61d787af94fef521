package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/entity"
	apperrors "inkflow-ai-api/pkg/errors"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	var ids []string
	for _, tpl := range c.List() {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"blog-post", "social-media", "email-draft", "summarizer", "rewrite", "creative-story"}, ids)
	assert.Equal(t, "blog-post", c.Default().ID)

	blog, err := c.Get("blog-post")
	require.NoError(t, err)
	assert.Equal(t, "Blog Post", blog.Name)
	require.Len(t, blog.Fields, 4)
	assert.Equal(t, "Topic/Title", blog.Fields[0].Label)
	assert.Equal(t, entity.FieldKindSelect, blog.Fields[2].Kind)
	assert.Equal(t, "Professional", blog.Fields[2].DefaultValue)

	social, err := c.Get("social-media")
	require.NoError(t, err)
	platform, ok := social.Field("platform")
	require.True(t, ok)
	assert.Contains(t, platform.Options, "Twitter (X)")
}

func TestGet_NotFound(t *testing.T) {
	c := MustBuiltin()
	_, err := c.Get("haiku")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTemplateNotFound))
}

func TestList_ReturnsCopy(t *testing.T) {
	c := MustBuiltin()
	list := c.List()
	list[0] = entity.Template{ID: "mutated"}
	assert.Equal(t, "blog-post", c.List()[0].ID)
}

func TestNew_RejectsInvalidDefinitions(t *testing.T) {
	valid := entity.Template{ID: "a", Name: "A", Fields: []entity.Field{{ID: "x", Kind: entity.FieldKindText}}}

	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]entity.Template{valid, valid})
	assert.ErrorContains(t, err, "duplicate template id")

	bad := valid
	bad.ID = "b"
	bad.Fields = []entity.Field{{ID: "s", Kind: entity.FieldKindSelect, Options: []string{"1"}, DefaultValue: "2"}}
	_, err = New([]entity.Template{valid, bad})
	assert.Error(t, err)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
templates:
  - id: a
    name: A
    colour: red
    fields:
      - id: x
        type: text
`))
	assert.Error(t, err)
}
