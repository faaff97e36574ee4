package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/logging"
)

type recordingMirror struct {
	mu    sync.Mutex
	keys  []string
	err   error
	calls int
}

func (m *recordingMirror) Mirror(ctx context.Context, docID, stamp string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, docID+"/"+stamp)
	return nil
}

func clock(stamps ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		s := stamps[i]
		if i < len(stamps)-1 {
			i++
		}
		return s
	}
}

func openInstance(t *testing.T, opts Options) *Instance {
	t.Helper()
	dir := t.TempDir()
	if opts.ID == "" {
		opts.ID = "doc-1"
	}
	opts.SnapshotPath = filepath.Join(dir, "wiki_doc.html")
	opts.StorePath = filepath.Join(dir, "doc-1_tiddlers.db")
	opts.Logger = logging.Nop()

	inst, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(context.Background()) })
	return inst
}

func TestLocalCalls(t *testing.T) {
	inst := openInstance(t, Options{Now: clock("20240101000000000")})
	ctx := context.Background()

	rev, err := inst.PutTiddler(ctx, "Foo Bar", []byte(`{"text": "x", "tags": ["a b", "c"]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	b, found, err := inst.GetTiddler(ctx, "Foo Bar")
	require.NoError(t, err)
	require.True(t, found)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "[[a b]] c", got["tags"])
	assert.Equal(t, "Foo Bar", got["title"])
	assert.Equal(t, float64(1), got["revision"])

	_, found, err = inst.GetTiddler(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	existed, err := inst.DeleteTiddler(ctx, "Foo Bar")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = inst.DeleteTiddler(ctx, "Foo Bar")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = inst.PutTiddler(ctx, "x", []byte(`not json`))
	require.ErrorIs(t, err, common.ErrProtocolDecode)
	_, err = inst.PutTiddler(ctx, "", []byte(`{}`))
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSave_SetsBaseline(t *testing.T) {
	mirror := &recordingMirror{}
	inst := openInstance(t, Options{Backup: mirror, Now: clock("20240201000000000")})
	ctx := context.Background()

	_, err := inst.PutTiddler(ctx, "old", []byte(`{"modified": "20240101000000000"}`))
	require.NoError(t, err)
	_, err = inst.PutTiddler(ctx, "new", []byte(`{"modified": "20240301000000000"}`))
	require.NoError(t, err)

	cs, err := inst.GetUpdatedTiddlers(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, cs.Modified, "cold sync before the first save")

	require.NoError(t, inst.Save(ctx, []byte("<html>saved</html>")))

	b, err := os.ReadFile(inst.snapshotPath)
	require.NoError(t, err)
	assert.Equal(t, "<html>saved</html>", string(b))
	assert.Equal(t, []string{"doc-1/20240201000000000"}, mirror.keys)

	cs, err = inst.GetUpdatedTiddlers(ctx, "", []string{"old", "new", "gone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, cs.Modified)
	assert.Equal(t, []string{"gone"}, cs.Deleted)
}

func TestSave_RejectsEmpty(t *testing.T) {
	inst := openInstance(t, Options{})

	require.ErrorIs(t, inst.Save(context.Background(), nil), common.ErrValidation)
	_, err := os.Stat(inst.snapshotPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSave_MirrorFailureIsNotFatal(t *testing.T) {
	mirror := &recordingMirror{err: errors.New("bucket gone")}
	inst := openInstance(t, Options{Backup: mirror, Now: clock("20240201000000000")})

	require.NoError(t, inst.Save(context.Background(), []byte("<html/>")))
	assert.Equal(t, 1, mirror.calls)

	marker, ok, err := inst.store.SaveMarker(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20240201000000000", marker)
}

func TestStart_ServesFacade(t *testing.T) {
	inst := openInstance(t, Options{})
	ctx := context.Background()
	require.NoError(t, inst.Save(ctx, []byte("<html>doc</html>")))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, inst.Start(ctx, ln))
	require.ErrorIs(t, inst.Start(ctx, ln), ErrStarted)

	resp, err := http.Get(inst.URL() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>doc</html>", string(body))

	require.NoError(t, inst.Close(ctx))
	require.NoError(t, inst.Close(ctx))

	_, err = http.Get(inst.URL() + "/status")
	require.Error(t, err, "listener is closed")

	_, err = inst.PutTiddler(ctx, "x", []byte(`{}`))
	require.ErrorIs(t, err, common.ErrStorage)
}

func TestStart_AfterClose(t *testing.T) {
	inst := openInstance(t, Options{})
	require.NoError(t, inst.Close(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	require.ErrorIs(t, inst.Start(context.Background(), ln), ErrClosed)
}

func TestWatch_ExternalRewriteMovesBaseline(t *testing.T) {
	inst := openInstance(t, Options{Watch: true, WatchDebounce: 50 * time.Millisecond, Now: clock("20000101000000000")})
	ctx := context.Background()
	require.NoError(t, inst.Save(ctx, []byte("<html>v1</html>")))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, inst.Start(ctx, ln))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(inst.snapshotPath, []byte("<html>v2</html>"), 0o644))

	require.Eventually(t, func() bool {
		marker, _, err := inst.store.SaveMarker(ctx)
		return err == nil && marker != "20000101000000000"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestOpen_EmptyID(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	require.ErrorIs(t, err, common.ErrValidation)
}
