package graphfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treefs/treefs/backend/memory"
	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/graphfs"
)

func newFs() *graphfs.Fs {
	return graphfs.New(memory.New())
}

func mustExist(t *testing.T, f *graphfs.Fs, path string, want bool) {
	t.Helper()
	ok, err := f.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, want, ok, "Exists(%q)", path)
}

func TestWriteReadExists(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	content := []byte("hello world")
	require.NoError(t, f.WriteFile(ctx, "/dir/file.txt", content))
	mustExist(t, f, "/dir/file.txt", true)
	mustExist(t, f, "/dir", true)

	got, err := f.ReadFile(ctx, "/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteReadEmptyContent(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/empty.bin", []byte{}))
	mustExist(t, f, "/empty.bin", true)
	got, err := f.ReadFile(ctx, "/empty.bin")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFileMissing(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	_, err := f.ReadFile(ctx, "/nope.txt")
	assert.ErrorIs(t, err, fs.ErrorNotFound)
}

func TestReadFileOnDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.Mkdir(ctx, "/dir"))
	_, err := f.ReadFile(ctx, "/dir")
	assert.ErrorIs(t, err, fs.ErrorNotFound)
}

func TestWriteOverwriteByReplace(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/f.txt", []byte("a")))
	require.NoError(t, f.WriteFile(ctx, "/f.txt", []byte("b")))
	got, err := f.ReadFile(ctx, "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestWriteFileOverDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.Mkdir(ctx, "/dir"))
	err := f.WriteFile(ctx, "/dir", []byte("x"))
	assert.ErrorIs(t, err, fs.ErrorIsDir)
}

func TestWriteFileThroughFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.WriteFile(ctx, "/blocker", []byte("x")))
	err := f.WriteFile(ctx, "/blocker/inner.txt", []byte("y"))
	assert.ErrorIs(t, err, fs.ErrorIsFile)
}

func TestMkdirIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.Mkdir(ctx, "/a/b/c"))
	require.NoError(t, f.Mkdir(ctx, "/a/b/c"))
	mustExist(t, f, "/a/b/c", true)

	entries, err := f.List(ctx, "/a/b")
	require.NoError(t, err)
	require.Len(t, entries, 1, "second Mkdir must not create a duplicate")
	assert.Equal(t, "c", entries[0].Name)
}

func TestMkdirBlockedByFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.WriteFile(ctx, "/a/file", []byte("x")))
	err := f.Mkdir(ctx, "/a/file/b")
	assert.ErrorIs(t, err, fs.ErrorIsFile)
}

func TestDeleteRecursive(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.Mkdir(ctx, "/d/x/y"))
	require.NoError(t, f.WriteFile(ctx, "/d/x/y/f.txt", []byte("c")))

	require.NoError(t, f.Delete(ctx, "/d"))
	mustExist(t, f, "/d", false)
	mustExist(t, f, "/d/x", false)
	mustExist(t, f, "/d/x/y/f.txt", false)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	assert.NoError(t, f.Delete(ctx, "/not/there"))
}

func TestDeleteRootRejected(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	err := f.Delete(ctx, "/")
	assert.ErrorIs(t, err, fs.ErrorCantDeleteRoot)
}

func TestDeleteThenRecreate(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/d/f.txt", []byte("one")))
	require.NoError(t, f.Delete(ctx, "/d"))
	// the cache entry for /d must not survive the delete
	require.NoError(t, f.WriteFile(ctx, "/d/f.txt", []byte("two")))
	got, err := f.ReadFile(ctx, "/d/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestCopyFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a.txt", []byte("payload")))
	require.NoError(t, f.Copy(ctx, "/a.txt", "/b.txt"))

	mustExist(t, f, "/a.txt", true)
	mustExist(t, f, "/b.txt", true)
	got, err := f.ReadFile(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	got, err = f.ReadFile(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got), "source content unchanged")
}

func TestCopyFileIntoExistingDir(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src.txt", []byte("x")))
	require.NoError(t, f.Mkdir(ctx, "/dir"))
	require.NoError(t, f.Copy(ctx, "/src.txt", "/dir"))
	mustExist(t, f, "/dir/src.txt", true)
}

func TestCopyFileOntoExistingFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src.txt", []byte("new")))
	require.NoError(t, f.WriteFile(ctx, "/dst.txt", []byte("old")))
	require.NoError(t, f.Copy(ctx, "/src.txt", "/dst.txt"))
	got, err := f.ReadFile(ctx, "/dst.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestCopyFileTrailingSeparatorDst(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src.txt", []byte("x")))
	// trailing separator means "directory to create", keep the source name
	require.NoError(t, f.Copy(ctx, "/src.txt", "/made/dir/"))
	mustExist(t, f, "/made/dir/src.txt", true)
}

func TestCopyFileToNewName(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src.txt", []byte("x")))
	require.NoError(t, f.Copy(ctx, "/src.txt", "/made/renamed.txt"))
	mustExist(t, f, "/made/renamed.txt", true)
	mustExist(t, f, "/made/src.txt", false)
}

func TestCopyMissingSourceIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.Copy(ctx, "/ghost", "/dst"))
	mustExist(t, f, "/dst", false)
}

func TestCopyDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src/one.txt", []byte("1")))
	require.NoError(t, f.WriteFile(ctx, "/src/sub/two.txt", []byte("2")))
	require.NoError(t, f.Mkdir(ctx, "/src/emptydir"))

	require.NoError(t, f.Copy(ctx, "/src", "/dst"))

	mustExist(t, f, "/src/sub/two.txt", true)
	mustExist(t, f, "/dst/one.txt", true)
	mustExist(t, f, "/dst/sub/two.txt", true)
	mustExist(t, f, "/dst/emptydir", true)
	got, err := f.ReadFile(ctx, "/dst/sub/two.txt")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestCopyDirectoryOntoFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.Mkdir(ctx, "/src"))
	require.NoError(t, f.WriteFile(ctx, "/dst", []byte("x")))
	err := f.Copy(ctx, "/src", "/dst")
	assert.ErrorIs(t, err, fs.ErrorIsFile)
}

func TestCopyDirectoryMergesIntoExisting(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src/new.txt", []byte("n")))
	require.NoError(t, f.WriteFile(ctx, "/dst/keep.txt", []byte("k")))
	require.NoError(t, f.Copy(ctx, "/src", "/dst"))
	mustExist(t, f, "/dst/new.txt", true)
	mustExist(t, f, "/dst/keep.txt", true)
}

func TestCopyFileOntoItself(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a.txt", []byte("payload")))
	require.NoError(t, f.Copy(ctx, "/a.txt", "/a.txt"))
	// the source must survive untouched
	got, err := f.ReadFile(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestCopyDirectoryOntoItself(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a/f.txt", []byte("x")))
	require.NoError(t, f.Copy(ctx, "/a", "/a"))
	got, err := f.ReadFile(ctx, "/a/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
	entries, err := f.List(ctx, "/a")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyDirectoryIntoOwnSubtree(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a/f.txt", []byte("x")))
	err := f.Copy(ctx, "/a", "/a/b")
	assert.ErrorIs(t, err, fs.ErrorOverlapping)
	mustExist(t, f, "/a/f.txt", true)
	mustExist(t, f, "/a/b", false)
}

func TestMoveFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a.txt", []byte("payload")))
	require.NoError(t, f.Move(ctx, "/a.txt", "/sub/b.txt"))

	mustExist(t, f, "/a.txt", false)
	mustExist(t, f, "/sub/b.txt", true)
	got, err := f.ReadFile(ctx, "/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestMoveFileReplacesTarget(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a.txt", []byte("new")))
	require.NoError(t, f.WriteFile(ctx, "/b.txt", []byte("old")))
	require.NoError(t, f.Move(ctx, "/a.txt", "/b.txt"))
	mustExist(t, f, "/a.txt", false)
	got, err := f.ReadFile(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestMoveMissingSourceIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.Move(ctx, "/ghost", "/dst"))
	mustExist(t, f, "/dst", false)
}

func TestMoveDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src/nested/f.txt", []byte("deep")))
	require.NoError(t, f.Move(ctx, "/src", "/dst"))

	mustExist(t, f, "/src", false)
	mustExist(t, f, "/dst/nested/f.txt", true)
	got, err := f.ReadFile(ctx, "/dst/nested/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(got))
}

func TestMoveDirectoryOntoItself(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a/f.txt", []byte("x")))
	require.NoError(t, f.Move(ctx, "/a", "/a"))
	got, err := f.ReadFile(ctx, "/a/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestMoveDirectoryIntoOwnSubtree(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a/f.txt", []byte("x")))
	err := f.Move(ctx, "/a", "/a/b")
	assert.ErrorIs(t, err, fs.ErrorOverlapping)
	mustExist(t, f, "/a/f.txt", true)
}

func TestRenameFile(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/dir/a.txt", []byte("x")))
	require.NoError(t, f.Rename(ctx, "/dir/a.txt", "b.txt"))
	// rename is equivalent to a move to a sibling path
	mustExist(t, f, "/dir/a.txt", false)
	mustExist(t, f, "/dir/b.txt", true)
}

func TestRenameDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/old/f.txt", []byte("x")))
	require.NoError(t, f.Rename(ctx, "/old", "new"))
	mustExist(t, f, "/old/f.txt", false)
	mustExist(t, f, "/new/f.txt", true)
}

func TestRenameMatchesSiblingMove(t *testing.T) {
	ctx := context.Background()

	renamed := newFs()
	require.NoError(t, renamed.WriteFile(ctx, "/dir/a.txt", []byte("payload")))
	require.NoError(t, renamed.Rename(ctx, "/dir/a.txt", "b.txt"))

	moved := newFs()
	require.NoError(t, moved.WriteFile(ctx, "/dir/a.txt", []byte("payload")))
	require.NoError(t, moved.Move(ctx, "/dir/a.txt", "/dir/b.txt"))

	// both leave the same tree with the same content
	for _, f := range []*graphfs.Fs{renamed, moved} {
		mustExist(t, f, "/dir/a.txt", false)
		got, err := f.ReadFile(ctx, "/dir/b.txt")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))
	}
}

func TestRenameConflict(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.Mkdir(ctx, "/dir"))
	require.NoError(t, f.Mkdir(ctx, "/x"))
	err := f.Rename(ctx, "/dir", "x")
	assert.ErrorIs(t, err, fs.ErrorNameInUse)
	// original directory untouched
	mustExist(t, f, "/dir", true)
}

func TestRenameToSameNameIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.WriteFile(ctx, "/a.txt", []byte("x")))
	assert.NoError(t, f.Rename(ctx, "/a.txt", "a.txt"))
	mustExist(t, f, "/a.txt", true)
}

func TestRenameValidation(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.WriteFile(ctx, "/a.txt", []byte("x")))

	for _, bad := range []string{"", "a/b", `a\b`, "/leading"} {
		err := f.Rename(ctx, "/a.txt", bad)
		assert.ErrorIs(t, err, fs.ErrorInvalidName, "newName %q", bad)
	}
}

func TestRenameMissingSource(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	err := f.Rename(ctx, "/ghost", "name")
	assert.ErrorIs(t, err, fs.ErrorNotFound)
}

func TestCopyAllFiles(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/source-dir/nested/file.txt", []byte("child-content")))
	require.NoError(t, f.CopyAllFiles(ctx, "/source-dir", "/target-dir"))

	mustExist(t, f, "/target-dir/nested/file.txt", true)
	got, err := f.ReadFile(ctx, "/target-dir/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "child-content", string(got))
	mustExist(t, f, "/source-dir/nested/file.txt", true)
}

func TestCopyAllFilesMissingSource(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.CopyAllFiles(ctx, "/missing", "/target"))
	// pure no-op - not even the target directory is created
	mustExist(t, f, "/target", false)
}

func TestCopyAllFilesSkipsEmptyDirs(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.Mkdir(ctx, "/src/empty/deeper"))
	require.NoError(t, f.WriteFile(ctx, "/src/full/f.txt", []byte("x")))
	require.NoError(t, f.CopyAllFiles(ctx, "/src", "/dst"))

	mustExist(t, f, "/dst/full/f.txt", true)
	mustExist(t, f, "/dst/empty", false)
}

func TestCopyAllFilesIsOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/src/shared.txt", []byte("new")))
	require.NoError(t, f.WriteFile(ctx, "/dst/shared.txt", []byte("old")))
	require.NoError(t, f.WriteFile(ctx, "/dst/extra.txt", []byte("keep")))

	require.NoError(t, f.CopyAllFiles(ctx, "/src", "/dst"))

	got, err := f.ReadFile(ctx, "/dst/shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	// destination-side extras are left alone
	got, err = f.ReadFile(ctx, "/dst/extra.txt")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))
}

func TestCopyAllFilesIntoOwnSubtree(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a/f.txt", []byte("x")))
	err := f.CopyAllFiles(ctx, "/a", "/a/b")
	assert.ErrorIs(t, err, fs.ErrorOverlapping)
	mustExist(t, f, "/a/b", false)
}

func TestCopyAllFilesOnFileSource(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	require.NoError(t, f.WriteFile(ctx, "/file.txt", []byte("x")))
	require.NoError(t, f.CopyAllFiles(ctx, "/file.txt", "/target"))
	mustExist(t, f, "/target", false)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/dir/b.txt", []byte("bb")))
	require.NoError(t, f.Mkdir(ctx, "/dir/a"))

	entries, err := f.List(ctx, "/dir")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, fs.KindFolder, entries[0].Kind)
	assert.Equal(t, "b.txt", entries[1].Name)
	assert.Equal(t, fs.KindFile, entries[1].Kind)
	assert.Equal(t, int64(2), entries[1].Size)
}

func TestListMissing(t *testing.T) {
	ctx := context.Background()
	f := newFs()
	_, err := f.List(ctx, "/nope")
	assert.ErrorIs(t, err, fs.ErrorNotFound)
}

func TestPathNormalizationAtBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFs()

	require.NoError(t, f.WriteFile(ctx, "/a/b/../c/f.txt", []byte("x")))
	mustExist(t, f, "/a/c/f.txt", true)
	mustExist(t, f, `\a\c\f.txt`, true)
	mustExist(t, f, "a/./c/f.txt", true)
}

func TestCancelledContext(t *testing.T) {
	f := newFs()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Exists(ctx, "/x")
	assert.ErrorIs(t, err, context.Canceled)
	err = f.WriteFile(ctx, "/x", []byte("y"))
	assert.ErrorIs(t, err, context.Canceled)
	err = f.Copy(ctx, "/x", "/y")
	assert.ErrorIs(t, err, context.Canceled)
}
