package scaffold_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/emit"
	"github.com/mohamedhabibwork/abp-script/placeholder"
	"github.com/mohamedhabibwork/abp-script/protoprops"
	"github.com/mohamedhabibwork/abp-script/scaffold"
	"github.com/mohamedhabibwork/abp-script/validate"
)

func TestMain(m *testing.M) {
	exitCode := m.Run()

	snaps.Clean(m, snaps.CleanOpts{Sort: true})

	os.Exit(exitCode)
}

const testManifest = `version: v1.0.0
templates:
  - name: domain/widget
    output: src/${MODULE_NAME}/${ENTITY_NAME}.cs
  - name: api/widget
    output: src/${MODULE_NAME}/Controllers/${ENTITY_NAME}Controller.cs
    idTypes: [Guid]
  - name: events/widget
    output: src/${MODULE_NAME}/Events/${ENTITY_NAME}${EVENT_NAME}.cs
  - name: dup/widget
    output: src/${MODULE_NAME}/${ENTITY_NAME}.cs
  - name: module/shared
    output: src/${MODULE_NAME}/${MODULE_NAME}Module.cs
  - name: module/registry
    output: src/${MODULE_NAME}/${MODULE_NAME}Registry.cs
presets:
  base: [domain/widget, api/widget]
`

func testLoader(t *testing.T) *corpus.Loader {
	t.Helper()
	l, err := corpus.NewLoader(fstest.MapFS{
		corpus.ManifestFile:                 {Data: []byte(testManifest)},
		"templates/domain/widget.cs.tmpl":   {Data: []byte("namespace ${NAMESPACE};\n\npublic class ${ENTITY_NAME}\n{\n    ${PROPERTIES}\n}\n")},
		"templates/api/widget.cs.tmpl":      {Data: []byte("[Route(\"api/${MODULE_NAME_LOWER}/${ENTITY_NAME_LOWER_PLURAL}\")]\npublic class ${ENTITY_NAME}Controller {}\n")},
		"templates/events/widget.cs.tmpl":   {Data: []byte("public class ${ENTITY_NAME}${EVENT_NAME} {}\n")},
		"templates/dup/widget.cs.tmpl":      {Data: []byte("// ${ENTITY_NAME}\n")},
		"templates/module/shared.cs.tmpl":   {Data: []byte("public class ${MODULE_NAME}Module {}\n")},
		"templates/module/registry.cs.tmpl": {Data: []byte("// registers ${ENTITY_NAME}\n")},
	})
	require.NoError(t, err)
	return l
}

func seed(entity string) placeholder.Seed {
	return placeholder.Seed{
		Namespace:  "Acme.Shop",
		ModuleName: "Catalog",
		EntityName: entity,
		IDType:     "Guid",
	}
}

func newGenerator(t *testing.T, opts ...emit.Option) (*scaffold.Generator, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/out", 0o755))
	e := emit.New(fsys, "/out", append([]emit.Option{emit.WithCreateDirs(true)}, opts...)...)
	return scaffold.New(scaffold.WithLoader(testLoader(t)), scaffold.WithEmitter(e), scaffold.WithWorkers(2)), fsys
}

func countFiles(t *testing.T, fsys afero.Fs) int {
	t.Helper()
	n := 0
	require.NoError(t, afero.Walk(fsys, "/out", func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	}))
	return n
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	r := g.Generate(context.Background(), scaffold.Request{Seed: seed("Product"), Presets: []string{"base"}})
	require.NoError(t, r.Err())
	require.Len(t, r.Outputs, 2)
	assert.Equal(t, "src/Catalog/Product.cs", r.Outputs[0].Path)
	assert.Equal(t, []string{protoprops.KeyProperties}, r.Outputs[0].Omitted)
	assert.Len(t, r.Written(), 2)

	data, err := afero.ReadFile(fsys, filepath.Join("/out", "src", "Catalog", "Controllers", "ProductController.cs"))
	require.NoError(t, err)
	assert.Equal(t, "[Route(\"api/catalog/products\")]\npublic class ProductController {}\n", string(data))

	data, err = afero.ReadFile(fsys, filepath.Join("/out", "src", "Catalog", "Product.cs"))
	require.NoError(t, err)
	assert.Equal(t, "namespace Acme.Shop;\n\npublic class Product\n{\n}\n", string(data))
}

func TestGenerate_Blocks(t *testing.T) {
	t.Parallel()

	g, _ := newGenerator(t)
	s := seed("Product")
	s.Blocks = map[string]string{protoprops.KeyProperties: "public string Name { get; set; }\npublic int Stock { get; set; }"}
	r := g.Generate(context.Background(), scaffold.Request{Seed: s, Templates: []string{"domain/widget"}, DryRun: true})
	require.NoError(t, r.Err())
	require.Len(t, r.Outputs, 1)
	snaps.MatchSnapshot(t, r.Outputs[0].Text)
}

func TestGenerate_InvalidSeed(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	s := seed("Product")
	s.ModuleName = ""
	s.IDType = "uuid4"
	r := g.Generate(context.Background(), scaffold.Request{Seed: s, Presets: []string{"base"}})

	require.Error(t, r.Err())
	require.Len(t, r.Errors, 2)
	for _, err := range r.Errors {
		var sve *placeholder.SeedValidationError
		assert.True(t, errors.As(err, &sve))
	}
	assert.Nil(t, r.Table)
	assert.Empty(t, r.Outputs)
	assert.Equal(t, 0, countFiles(t, fsys))
}

func TestGenerate_Idempotent(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t, emit.WithOverwrite(true))
	req := scaffold.Request{Seed: seed("Product"), Presets: []string{"base"}}

	require.NoError(t, g.Generate(context.Background(), req).Err())
	first, err := afero.ReadFile(fsys, "/out/src/Catalog/Product.cs")
	require.NoError(t, err)

	require.NoError(t, g.Generate(context.Background(), req).Err())
	second, err := afero.ReadFile(fsys, "/out/src/Catalog/Product.cs")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, countFiles(t, fsys))
}

func TestGenerate_Conflict(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	require.NoError(t, fsys.MkdirAll("/out/src/Catalog/Controllers", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/out/src/Catalog/Controllers/ProductController.cs", []byte("mine"), 0o644))

	r := g.Generate(context.Background(), scaffold.Request{Seed: seed("Product"), Presets: []string{"base"}})
	require.Error(t, r.Err())
	assert.True(t, errors.Is(r.Err(), emit.ErrOutputConflict))
	assert.Empty(t, r.Written())

	// the template before the conflict was held back too
	exists, err := afero.Exists(fsys, "/out/src/Catalog/Product.cs")
	require.NoError(t, err)
	assert.False(t, exists)

	r = g.Generate(context.Background(), scaffold.Request{Seed: seed("Product"), Presets: []string{"base"}, Partial: true})
	require.Error(t, r.Err())
	assert.Equal(t, []string{filepath.Join("/out", "src", "Catalog", "Product.cs")}, r.Written())
}

func TestGenerate_Partial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		partial bool
		written int
	}{
		{"all or nothing", false, 0},
		{"partial", true, 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, fsys := newGenerator(t)
			r := g.Generate(context.Background(), scaffold.Request{
				Seed:      seed("Product"),
				Templates: []string{"domain/widget", "events/widget"},
				Partial:   tt.partial,
			})
			require.Error(t, r.Err())
			blocking := r.Blocking()
			require.Len(t, blocking, 1)
			assert.Equal(t, validate.CodeMissingPlaceholder, blocking[0].Code)
			assert.Equal(t, "events/widget", blocking[0].Template)
			assert.Equal(t, placeholder.KeyEventName, blocking[0].Key)
			assert.Equal(t, tt.written, countFiles(t, fsys))
		})
	}
}

func TestGenerate_Strict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		strict  bool
		written int
	}{
		{"warnings pass", false, 2},
		{"strict", true, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, fsys := newGenerator(t)
			r := g.Generate(context.Background(), scaffold.Request{
				Seed:    seed("Person"),
				Presets: []string{"base"},
				Strict:  tt.strict,
			})
			require.NotEmpty(t, r.Findings)
			assert.Equal(t, validate.CodePluralHeuristic, r.Findings[0].Code)
			assert.Equal(t, tt.strict, r.Err() != nil)
			assert.Equal(t, tt.written, countFiles(t, fsys))
		})
	}
}

func TestGenerate_IDTypeIncompatible(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	s := seed("Product")
	s.IDType = "int"
	r := g.Generate(context.Background(), scaffold.Request{Seed: s, Presets: []string{"base"}, Partial: true})
	require.Error(t, r.Err())
	require.Len(t, r.Blocking(), 1)
	assert.Equal(t, validate.CodeIDTypeIncompatible, r.Blocking()[0].Code)
	assert.Equal(t, 1, countFiles(t, fsys))
}

func TestGenerate_DuplicateOutput(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	r := g.Generate(context.Background(), scaffold.Request{
		Seed:      seed("Product"),
		Templates: []string{"domain/widget", "dup/widget"},
	})
	require.Error(t, r.Err())
	require.Len(t, r.Blocking(), 1)
	assert.Equal(t, validate.CodeDuplicateOutput, r.Blocking()[0].Code)
	assert.Equal(t, 0, countFiles(t, fsys))
}

func TestGenerate_DryRun(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	r := g.Generate(context.Background(), scaffold.Request{Seed: seed("Product"), Presets: []string{"base"}, DryRun: true})
	require.NoError(t, r.Err())
	assert.Len(t, r.Outputs, 2)
	assert.Empty(t, r.Written())
	assert.Equal(t, 0, countFiles(t, fsys))
}

func TestGenerate_NoTemplates(t *testing.T) {
	t.Parallel()

	g, _ := newGenerator(t)
	r := g.Generate(context.Background(), scaffold.Request{Seed: seed("Product")})
	assert.True(t, errors.Is(r.Err(), scaffold.ErrNoTemplates))

	r = g.Generate(context.Background(), scaffold.Request{Seed: seed("Product"), Templates: []string{"nope"}})
	assert.True(t, errors.Is(r.Err(), corpus.ErrTemplateNotFound))
}

func TestGenerateAll(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	entities := []string{"Product", "Category", "Box", "Order", "Invoice"}
	reqs := make([]scaffold.Request, 0, len(entities)+1)
	for _, e := range entities {
		reqs = append(reqs, scaffold.Request{Seed: seed(e), Presets: []string{"base"}})
	}
	bad := seed("Broken")
	bad.Namespace = "Acme..Shop"
	reqs = append(reqs, scaffold.Request{Name: "broken", Seed: bad, Presets: []string{"base"}})

	reports := g.GenerateAll(context.Background(), reqs)
	require.Len(t, reports, len(reqs))
	for i, e := range entities {
		require.NoError(t, reports[i].Err(), e)
		assert.Equal(t, "src/Catalog/"+e+".cs", reports[i].Outputs[0].Path)
	}
	assert.Error(t, reports[len(reqs)-1].Err())
	assert.Equal(t, 2*len(entities), countFiles(t, fsys))

	data, err := afero.ReadFile(fsys, "/out/src/Catalog/Controllers/CategoryController.cs")
	require.NoError(t, err)
	assert.Contains(t, string(data), "api/catalog/categories")
	data, err = afero.ReadFile(fsys, "/out/src/Catalog/Controllers/BoxController.cs")
	require.NoError(t, err)
	assert.Contains(t, string(data), "api/catalog/boxes")
}

func moduleRequests(templates []string, entities ...string) []scaffold.Request {
	reqs := make([]scaffold.Request, len(entities))
	for i, e := range entities {
		reqs[i] = scaffold.Request{Seed: seed(e), Templates: templates}
	}
	return reqs
}

func TestGenerateAll_ModuleOutputs(t *testing.T) {
	t.Parallel()

	templates := []string{"domain/widget", "module/shared", "module/registry"}
	// the outcome must not depend on which worker gets there first
	for i := 0; i < 20; i++ {
		g, fsys := newGenerator(t)
		reports := g.GenerateAll(context.Background(), moduleRequests(templates, "Product", "Category", "Box"))

		require.NoError(t, reports[0].Err())
		assert.Len(t, reports[0].Written(), 3)
		for _, r := range reports[1:] {
			require.Error(t, r.Err())
			blocking := r.Blocking()
			require.Len(t, blocking, 1)
			assert.Equal(t, validate.CodeDuplicateOutput, blocking[0].Code)
			assert.Equal(t, "module/registry", blocking[0].Template)
			assert.Contains(t, blocking[0].Message, "Product")
			assert.Empty(t, r.Written())
		}
		assert.Equal(t, 3, countFiles(t, fsys))

		data, err := afero.ReadFile(fsys, "/out/src/Catalog/CatalogRegistry.cs")
		require.NoError(t, err)
		assert.Equal(t, "// registers Product\n", string(data))
	}
}

func TestGenerateAll_SharedModuleOutput(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	reports := g.GenerateAll(context.Background(),
		moduleRequests([]string{"domain/widget", "module/shared"}, "Product", "Category"))
	for _, r := range reports {
		require.NoError(t, r.Err())
	}
	assert.Equal(t, filepath.Join("/out", "src", "Catalog", "CatalogModule.cs"), reports[0].Outputs[1].Written)
	assert.Empty(t, reports[1].Outputs[1].Written)
	assert.Equal(t, "Product", reports[1].Outputs[1].Shared)
	assert.Equal(t, 3, countFiles(t, fsys))
}

func TestGenerateAll_ModuleOutputExists(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	require.NoError(t, fsys.MkdirAll("/out/src/Catalog", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/out/src/Catalog/CatalogModule.cs", []byte("mine"), 0o644))

	reports := g.GenerateAll(context.Background(),
		moduleRequests([]string{"domain/widget", "module/shared"}, "Product", "Category"))
	for _, r := range reports {
		require.Error(t, r.Err())
		assert.True(t, errors.Is(r.Err(), emit.ErrOutputConflict))
		assert.Empty(t, r.Written())
	}
	assert.Equal(t, 1, countFiles(t, fsys))

	data, err := afero.ReadFile(fsys, "/out/src/Catalog/CatalogModule.cs")
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestGenerateAll_OwnerHeldBack(t *testing.T) {
	t.Parallel()

	g, fsys := newGenerator(t)
	require.NoError(t, fsys.MkdirAll("/out/src/Catalog", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/out/src/Catalog/Product.cs", []byte("mine"), 0o644))

	reports := g.GenerateAll(context.Background(),
		moduleRequests([]string{"domain/widget", "module/shared"}, "Product", "Category"))
	require.Error(t, reports[0].Err())
	assert.Empty(t, reports[0].Written())

	// the module file falls to the next request
	require.NoError(t, reports[1].Err())
	assert.Empty(t, reports[1].Outputs[1].Shared)
	assert.Len(t, reports[1].Written(), 2)
	assert.Equal(t, 3, countFiles(t, fsys))
}

func TestGenerate_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, fsys := newGenerator(t)
	r := g.Generate(ctx, scaffold.Request{Seed: seed("Product"), Presets: []string{"base"}})
	assert.True(t, errors.Is(r.Err(), context.Canceled))
	assert.Empty(t, r.Written())

	reports := g.GenerateAll(ctx, moduleRequests([]string{"domain/widget"}, "Product", "Category", "Box"))
	for _, r := range reports {
		assert.True(t, errors.Is(r.Err(), context.Canceled))
	}
	assert.Equal(t, 0, countFiles(t, fsys))
}

func TestGenerate_EmbeddedCrud(t *testing.T) {
	t.Parallel()

	g := scaffold.New()
	r := g.Generate(context.Background(), scaffold.Request{Seed: seed("Product"), Presets: []string{"crud"}})
	require.NoError(t, r.Err())

	names, err := g.Loader().Manifest().Preset("crud")
	require.NoError(t, err)
	require.Len(t, r.Outputs, len(names))

	paths := make([]string, len(r.Outputs))
	for i, o := range r.Outputs {
		assert.NotRegexp(t, `\$\{[A-Z][A-Z0-9_]*\}`, o.Text, o.Template)
		paths[i] = o.Path
	}
	snaps.MatchSnapshot(t, paths)
}
