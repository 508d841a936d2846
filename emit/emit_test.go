package emit_test

import (
	"os"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedhabibwork/abp-script/emit"
)

func memFS(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/out", 0o755))
	return fsys
}

func TestEmit(t *testing.T) {
	t.Parallel()

	fsys := memFS(t)
	e := emit.New(fsys, "/out", emit.WithCreateDirs(true))

	p, err := e.Emit("src/Acme.Shop.Domain/Catalog/Product.cs", []byte("class Product {}"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "src", "Acme.Shop.Domain", "Catalog", "Product.cs"), p)

	data, err := afero.ReadFile(fsys, p)
	require.NoError(t, err)
	assert.Equal(t, "class Product {}", string(data))

	st, err := fsys.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	// no temp files left behind
	entries, err := afero.ReadDir(fsys, filepath.Dir(p))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Product.cs", entries[0].Name())
}

func TestEmit_Conflict(t *testing.T) {
	t.Parallel()

	fsys := memFS(t)
	require.NoError(t, afero.WriteFile(fsys, "/out/a.cs", []byte("old"), 0o644))

	e := emit.New(fsys, "/out")
	_, err := e.Emit("a.cs", []byte("new"))
	require.Error(t, err)

	var conflict *emit.OutputConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, filepath.Join("/out", "a.cs"), conflict.Path)
	assert.True(t, errors.Is(err, emit.ErrOutputConflict))
	assert.NotEmpty(t, errors.GetAllHints(err))
	assert.True(t, errors.Is(e.Check("a.cs"), emit.ErrOutputConflict))

	data, err := afero.ReadFile(fsys, "/out/a.cs")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestEmit_ConcurrentConflict(t *testing.T) {
	t.Parallel()

	fsys := memFS(t)
	e := emit.New(fsys, "/out", emit.WithCreateDirs(true))

	const writers = 16
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.Emit("src/Module.cs", []byte(fmt.Sprintf("writer %d", i)))
		}()
	}
	wg.Wait()

	var won []int
	for i, err := range errs {
		if err == nil {
			won = append(won, i)
			continue
		}
		assert.True(t, errors.Is(err, emit.ErrOutputConflict), "writer %d: %v", i, err)
	}
	require.Len(t, won, 1)

	data, err := afero.ReadFile(fsys, "/out/src/Module.cs")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("writer %d", won[0]), string(data))

	// no temp files left behind by the losers
	entries, err := afero.ReadDir(fsys, "/out/src")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEmit_Overwrite(t *testing.T) {
	t.Parallel()

	fsys := memFS(t)
	require.NoError(t, afero.WriteFile(fsys, "/out/a.cs", []byte("old"), 0o644))

	e := emit.New(fsys, "/out", emit.WithOverwrite(true))
	assert.True(t, e.Overwrite())
	for i := 0; i < 2; i++ {
		_, err := e.Emit("a.cs", []byte("new"))
		require.NoError(t, err)
	}
	data, err := afero.ReadFile(fsys, "/out/a.cs")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestEmit_DirNotExist(t *testing.T) {
	t.Parallel()

	fsys := memFS(t)
	e := emit.New(fsys, "/out")
	_, err := e.Emit("missing/a.cs", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, emit.ErrDirNotExist))
	assert.False(t, errors.Is(err, emit.ErrPermission))

	exists, err := afero.Exists(fsys, "/out/missing/a.cs")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEmit_Permission(t *testing.T) {
	t.Parallel()

	base := memFS(t)
	require.NoError(t, base.MkdirAll("/out/src", 0o755))
	ro := afero.NewReadOnlyFs(base)

	tests := []struct {
		name string
		e    *emit.Emitter
		path string
	}{
		{"existing dir", emit.New(ro, "/out"), "src/a.cs"},
		{"create dirs", emit.New(ro, "/out", emit.WithCreateDirs(true)), "src/deep/a.cs"},
	}
	for _, tt := range tests {
		_, err := tt.e.Emit(tt.path, []byte("x"))
		require.Error(t, err, tt.name)
		assert.True(t, errors.Is(err, emit.ErrPermission), tt.name)
		assert.False(t, errors.Is(err, emit.ErrDirNotExist), tt.name)
	}
}

func TestEmit_PathEscape(t *testing.T) {
	t.Parallel()

	e := emit.New(memFS(t), "/out", emit.WithCreateDirs(true))
	for _, p := range []string{"../a.cs", "/etc/passwd", "src/../../a.cs", ""} {
		_, err := e.Emit(p, []byte("x"))
		assert.True(t, errors.Is(err, emit.ErrPathEscape), p)
		assert.True(t, errors.Is(e.Check(p), emit.ErrPathEscape), p)
	}
}

func TestEmit_TargetIsDir(t *testing.T) {
	t.Parallel()

	fsys := memFS(t)
	require.NoError(t, fsys.MkdirAll("/out/a.cs", 0o755))
	e := emit.New(fsys, "/out", emit.WithOverwrite(true))
	_, err := e.Emit("a.cs", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestEmit_OS(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := emit.New(afero.NewOsFs(), dir, emit.WithCreateDirs(true), emit.WithFileMode(0o600))
	p, err := e.Emit("src/a.cs", []byte("x"))
	require.NoError(t, err)

	st, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
