package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/logging"
	"github.com/concretesite/designstore/internal/migration"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/testutil"
)

// keepOpen lets one memory store outlive the per-command Close.
type keepOpen struct{ kv.Store }

func (keepOpen) Close() error { return nil }

func newTestApp(t *testing.T) (*app, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })

	logger := testutil.TestLoggerSilent()
	store := keepOpen{mem}
	designStore := design.NewStore(store, design.Options{Logger: logger})
	return &app{
		kv:     store,
		store:  designStore,
		engine: migration.NewEngine(designStore, migration.Options{Logger: logger}),
	}, mem
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(context.Context) (*app, error) { return a, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateAndStatus(t *testing.T) {
	a, mem := newTestApp(t)
	legacy := `{"version":"1.0.0","sections":{"hero":{"backgroundColor":"#112233"}}}`
	require.NoError(t, mem.Set(context.Background(), design.KeyCurrent, []byte(legacy), 0))

	out, err := execute(t, a, "migrate", "--author", "ops")
	require.NoError(t, err)
	assert.True(t, gjson.Get(out, "success").Bool(), out)
	assert.Equal(t, migration.VersionLegacy, gjson.Get(out, "fromVersion").String())
	assert.NotEmpty(t, gjson.Get(out, "backupId").String())

	out, err = execute(t, a, "status")
	require.NoError(t, err)
	assert.Equal(t, model.CurrentSchemaVersion, gjson.Get(out, "currentVersion").String())
	assert.False(t, gjson.Get(out, "needsMigration").Bool())
	assert.Equal(t, "ops", gjson.Get(out, "lastMigration.author").String())

	out, err = execute(t, a, "backups")
	require.NoError(t, err)
	assert.Contains(t, out, "EXPIRES")
	assert.Equal(t, 2, strings.Count(out, "\n"), out)
}

func TestSetGetAndHistory(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := execute(t, a, "set", "sections.hero.colors.accent.value", `"#ff6600"`, "-a", "dana")
	require.NoError(t, err)

	out, err := execute(t, a, "get")
	require.NoError(t, err)
	assert.Equal(t, "#ff6600", gjson.Get(out, "sections.hero.colors.accent.value").String())

	out, err = execute(t, a, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "dana")

	_, err = execute(t, a, "set", "sections.hero.colors.accent.value", "#ff6600")
	assert.Error(t, err, "unquoted string is not JSON")
}

func TestExportImportRoundTrip(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	doc := model.DefaultSettings()
	doc.GlobalFonts.Primary.Family = "Inter"
	require.NoError(t, a.store.Save(ctx, doc, "seed", "seed"))

	file := filepath.Join(t.TempDir(), "export.json")
	_, err := execute(t, a, "export", "-o", file)
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "Inter", gjson.GetBytes(data, "globalFonts.primary.family").String())

	require.NoError(t, a.store.Save(ctx, model.DefaultSettings(), "seed", "reset"))

	out, err := execute(t, a, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported settings")
	assert.Equal(t, "Inter", a.store.Load(ctx).GlobalFonts.Primary.Family)
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	a, _ := newTestApp(t)

	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"version":"2.0.0"}`), 0644))

	_, err := execute(t, a, "import", file)
	assert.ErrorIs(t, err, design.ErrInvalidImport)
}

func TestRollbackAndDiff(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.store.Save(ctx, model.DefaultSettings(), "seed", "first"))
	entries, err := a.store.History().List(ctx, 1)
	require.NoError(t, err)
	first := entries[0].ID

	_, err = execute(t, a, "set", "sections.hero.colors.accent.value", `"#123456"`)
	require.NoError(t, err)

	out, err := execute(t, a, "diff", first, "--json")
	require.NoError(t, err)
	var cmp design.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	assert.Equal(t, design.CurrentRef, cmp.To)
	assert.GreaterOrEqual(t, cmp.Summary.Modified, 1)

	out, err = execute(t, a, "diff", first)
	require.NoError(t, err)
	assert.Contains(t, out, "sections.hero.colors.accent.value")
	assert.Contains(t, out, "0 added, 0 removed")

	_, err = execute(t, a, "rollback", first)
	require.NoError(t, err)
	assert.NotEqual(t, "#123456", a.store.Load(ctx).Sections[model.SectionHero].Colors.Accent.Value)

	_, err = execute(t, a, "rollback", "missing")
	assert.ErrorIs(t, err, design.ErrEntryNotFound)
}

func TestShowAndCompact(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.Save(ctx, model.DefaultSettings(), "seed", "first"))
	entries, err := a.store.History().List(ctx, 1)
	require.NoError(t, err)

	out, err := execute(t, a, "show", entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "seed", gjson.Get(out, "author").String())

	out, err = execute(t, a, "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 index entries")
}

func TestEvents(t *testing.T) {
	a, mem := newTestApp(t)
	ctx := context.Background()
	events := []model.Event{{Level: model.EventLevelWarning, Category: model.EventCategoryStorage, Message: "slow kv"}}
	require.NoError(t, kv.SetJSON(ctx, mem, logging.EventsKey, events, 0))

	out, err := execute(t, a, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "slow kv")

	_, err = execute(t, a, "events", "--clear")
	require.NoError(t, err)
	_, err = mem.Get(ctx, logging.EventsKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
