package inspect

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedhabibwork/abp-script/corpus"
)

func TestList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, List(&buf, corpus.Default(), ""))
	out := buf.String()
	assert.Contains(t, out, "api/controller-crud")
	assert.Contains(t, out, "preset crud: ")
	assert.Contains(t, out, "preset events: ")

	buf.Reset()
	require.NoError(t, List(&buf, corpus.Default(), "value-object"))
	assert.Contains(t, buf.String(), "domain/value-object")
	assert.NotContains(t, buf.String(), "api/controller-crud")
	assert.NotContains(t, buf.String(), "preset ")

	assert.Error(t, List(&buf, corpus.Default(), "nope"))
}

func TestKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Keys(&buf, corpus.Default(), []string{"api/controller-crud"}))
	assert.Contains(t, buf.String(), "required: ")
	assert.Contains(t, buf.String(), "ENTITY_NAME_LOWER_PLURAL")

	assert.ErrorIs(t, Keys(&buf, corpus.Default(), []string{"nope"}), corpus.ErrTemplateNotFound)
}

func TestPlaceholdersCmd(t *testing.T) {
	cmd := NewPlaceholders()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"-n", "Acme.Shop", "-m", "Catalog", "-e", "Category"})
	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "ENTITY_NAME_PLURAL=Categories\n")
	assert.Contains(t, out, "ENTITY_NAME_LOWER_PLURAL=categories\n")
	assert.Contains(t, out, "DB_CONTEXT_NAME=CatalogDbContext\n")
	assert.Contains(t, out, "ID_TYPE=Guid\n")
}

func TestBlocks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Blocks(&buf))
	assert.Contains(t, buf.String(), "PROPERTIES\n")
	assert.Contains(t, buf.String(), "ADDITIONAL_*\n")
}
