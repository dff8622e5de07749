package checksum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha1("hello\n")
const helloSHA1 = "f572d396fae9206628714fb2ce00f72e94f2258f"

func TestSHA1File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello\n"), 0o644))

	got, err := SHA1File(p)
	require.NoError(t, err)
	assert.Equal(t, helloSHA1, got)

	// empty file
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	got, err = SHA1File(empty)
	require.NoError(t, err)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", got)
}

func TestParse(t *testing.T) {
	in := "ABC123  file one.tar\n"
	_, err := Parse(strings.NewReader(in), "")
	assert.Error(t, err, "whitespace split of a name with spaces yields 3 fields")

	in = "abc123  a.tar.gz\n\ndef456 *b.tar.gz\r\n"
	sums, err := Parse(strings.NewReader(in), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.tar.gz": "abc123", "b.tar.gz": "def456"}, sums)

	sums, err = Parse(strings.NewReader("abc;file one.tar\n"), ";")
	require.NoError(t, err)
	assert.Equal(t, "abc", sums["file one.tar"])
}

func TestWriteReadVerify(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good"), []byte("hello\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), []byte("tampered"), 0o644))

	sums := map[string]string{"good": helloSHA1, "bad": helloSHA1, "gone": helloSHA1}
	path := filepath.Join(dir, FileName)
	require.NoError(t, Write(path, sums))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), helloSHA1+"  bad\n"), "sorted by name")

	read, err := Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, sums, read)

	res, err := Verify(dir, read)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, res.OK)
	assert.Equal(t, []string{"bad"}, res.Mismatched)
	assert.Equal(t, []string{"gone"}, res.Missing)
	assert.False(t, res.Clean())
}
