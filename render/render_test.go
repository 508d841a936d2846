package render_test

import (
	"os"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/placeholder"
	"github.com/mohamedhabibwork/abp-script/render"
)

func TestMain(m *testing.M) {
	exitCode := m.Run()

	snaps.Clean(m, snaps.CleanOpts{Sort: true})

	os.Exit(exitCode)
}

func resolve(t *testing.T, module, entity string, blocks map[string]string) *placeholder.Table {
	t.Helper()

	table, err := placeholder.Resolve(placeholder.Seed{
		Namespace:  "Acme.Shop",
		ModuleName: module,
		EntityName: entity,
		IDType:     "Guid",
		Blocks:     blocks,
	})
	require.NoError(t, err)
	return table
}

func template(t *testing.T, body string, optional ...string) *corpus.Template {
	t.Helper()

	tpl, err := corpus.NewTemplate(corpus.Entry{Name: "test/inline", Output: "out.cs", Optional: optional}, body)
	require.NoError(t, err)
	return tpl
}

func TestRender_LongestMatch(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Widget", nil)
	tpl := template(t, "${ENTITY_NAME} ${ENTITY_NAME_LOWER} ${ENTITY_NAME_LOWER_PLURAL} ${ENTITY_NAME_PLURAL}")

	res, err := render.Render(tpl, table)
	require.NoError(t, err)
	assert.Equal(t, "Widget widget widgets Widgets", res.Text)
	assert.NotContains(t, res.Text, "Widgetlower")
}

func TestRender_NotRecursive(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Widget", map[string]string{"PROPERTIES": "// ${ENTITY_NAME} stays"})
	tpl := template(t, "class ${ENTITY_NAME} { ${PROPERTIES} }")

	res, err := render.Render(tpl, table)
	require.NoError(t, err)
	assert.Equal(t, "class Widget { // ${ENTITY_NAME} stays }", res.Text)
}

func TestRender_Escape(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Widget", nil)
	tpl := template(t, `var s = $"$${${ENTITY_NAME_LOWER}.Name}";`)

	res, err := render.Render(tpl, table)
	require.NoError(t, err)
	assert.Equal(t, `var s = $"${widget.Name}";`, res.Text)
}

func TestRender_Missing(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Widget", nil)
	tpl := template(t, "${ENTITY_NAME}${EVENT_NAME}Event ${EVENT_NAME} ${VALUE_OBJECT_NAME} ${ADDITIONAL_X}")

	_, err := render.Render(tpl, table)
	require.Error(t, err)

	var mpe *render.MissingPlaceholderError
	require.True(t, errors.As(err, &mpe))
	assert.Equal(t, "test/inline", mpe.Template)
	assert.Equal(t, []string{"EVENT_NAME", "VALUE_OBJECT_NAME"}, mpe.Keys)
	assert.True(t, errors.Is(err, render.ErrMissingPlaceholder))
}

func TestRender_OptionalBlocks(t *testing.T) {
	t.Parallel()

	body := "class ${ENTITY_NAME}\n{\n    ${PROPERTIES}\n\n    ${RELATIONSHIPS}\n    void M() { ${ADDITIONAL_CALLS} }\n}\n"

	tests := []struct {
		name   string
		blocks map[string]string
		opts   []render.Option
		want   string
	}{
		{
			name: "all absent",
			want: "class Widget\n{\n\n    void M() {  }\n}\n",
		},
		{
			name: "blank value",
			blocks: map[string]string{"PROPERTIES": "  \n"},
			want: "class Widget\n{\n\n    void M() {  }\n}\n",
		},
		{
			name: "multi-line block indented",
			blocks: map[string]string{
				"PROPERTIES":       "public string Name { get; set; }\n\npublic int Rank { get; set; }\n",
				"ADDITIONAL_CALLS": "Run();",
			},
			want: "class Widget\n{\n    public string Name { get; set; }\n\n    public int Rank { get; set; }\n\n    void M() { Run(); }\n}\n",
		},
		{
			name: "keep blank lines",
			opts: []render.Option{render.KeepBlankLines()},
			want: "class Widget\n{\n    \n\n    \n    void M() {  }\n}\n",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table := resolve(t, "Catalog", "Widget", tt.blocks)
			res, err := render.Render(template(t, body), table, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestRender_SeveralBlocksOnOneLine(t *testing.T) {
	t.Parallel()

	body := "{\n    ${PROPERTIES}${ADDITIONAL_USINGS}\n    ${CUSTOM_A} ${CUSTOM_B}\n    // ${INDEXES}${CUSTOM_A}\n}\n"

	tests := []struct {
		name    string
		blocks  map[string]string
		want    string
		omitted []string
	}{
		{
			name:    "all empty",
			want:    "{\n    // \n}\n",
			omitted: []string{"PROPERTIES", "ADDITIONAL_USINGS", "CUSTOM_A", "CUSTOM_B", "INDEXES"},
		},
		{
			name:    "one set",
			blocks:  map[string]string{"ADDITIONAL_USINGS": "Run();", "CUSTOM_B": "Stop();"},
			want:    "{\n    Run();\n     Stop();\n    // \n}\n",
			omitted: []string{"PROPERTIES", "CUSTOM_A", "INDEXES"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table := resolve(t, "Catalog", "Widget", tt.blocks)
			res, err := render.Render(template(t, body), table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Text)
			assert.ElementsMatch(t, tt.omitted, res.Omitted)
		})
	}
}

func TestRender_Omitted(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Widget", map[string]string{"INDEXES": "x"})
	tpl := template(t, "${VALIDATION_RULES}\n${INDEXES}\n${VALIDATION_RULES}\n${EXTRA}\n", "EXTRA")

	res, err := render.Render(tpl, table)
	require.NoError(t, err)
	assert.Equal(t, "x\n", res.Text)
	assert.Equal(t, []string{"VALIDATION_RULES", "EXTRA"}, res.Omitted)
}

func TestRender_LastLineWithoutNewline(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Widget", nil)
	res, err := render.Render(template(t, "a\n  ${PROPERTIES}"), table)
	require.NoError(t, err)
	assert.Equal(t, "a\n", res.Text)
}

func TestRender_ControllerScenario(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Product", nil)
	tpl, err := corpus.Default().Load("api/controller-crud")
	require.NoError(t, err)

	res, err := render.Render(tpl, table)
	require.NoError(t, err)
	assert.Contains(t, res.Text, `[Route("api/catalog/products")]`)
	assert.Contains(t, res.Text, "IProductAppService")
	assert.NotContains(t, res.Text, "${")

	again, err := render.Render(tpl, table)
	require.NoError(t, err)
	assert.Equal(t, res.Text, again.Text)
}

func TestRender_EmbeddedCorpus(t *testing.T) {
	t.Parallel()

	table, err := placeholder.Resolve(placeholder.Seed{
		Namespace:  "Acme.Shop",
		ModuleName: "Catalog",
		EntityName: "Category",
		IDType:     "Guid",
		Extras: map[string]string{
			placeholder.KeyEventName:       "Created",
			placeholder.KeyValueObjectName: "Money",
		},
	})
	require.NoError(t, err)

	l := corpus.Default()
	for _, name := range l.List() {
		tpl, err := l.Load(name)
		require.NoError(t, err, name)
		res, err := render.Render(tpl, table)
		require.NoError(t, err, name)
		for _, line := range strings.Split(res.Text, "\n") {
			assert.NotRegexp(t, `\$\{[A-Z][A-Z0-9_]*\}`, line, name)
		}
	}
}

func TestRender_Snapshot(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Product", map[string]string{
		"PROPERTIES": "public string Name { get; set; }\npublic decimal Price { get; set; }",
	})
	tpl, err := corpus.Default().Load("application/dto-entity")
	require.NoError(t, err)

	res, err := render.Render(tpl, table)
	require.NoError(t, err)
	snaps.MatchSnapshot(t, res.Text)
}

func TestString(t *testing.T) {
	t.Parallel()

	table := resolve(t, "Catalog", "Product", nil)
	p, err := render.String("path", "src/${NAMESPACE}.HttpApi/${MODULE_NAME}/Controllers/${ENTITY_NAME}Controller.cs", table)
	require.NoError(t, err)
	assert.Equal(t, "src/Acme.Shop.HttpApi/Catalog/Controllers/ProductController.cs", p)

	_, err = render.String("path", "${EVENT_NAME}.cs", table)
	assert.True(t, errors.Is(err, render.ErrMissingPlaceholder))

	_, err = render.String("path", "${bad}.cs", table)
	var se *corpus.TemplateSyntaxError
	assert.True(t, errors.As(err, &se))
}
