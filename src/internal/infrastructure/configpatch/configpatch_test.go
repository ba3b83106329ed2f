package configpatch

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/gameops/src/internal/domain/errs"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Difficulty.eco")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), "output must stay valid JSON")
	return out
}

func TestPatch_NestedLeaf(t *testing.T) {
	path := writeDoc(t, `{"GameSettings": {"GenerateRandomWorld": false, "GameSpeed": "Normal"}}`)

	require.NoError(t, Patch(path, Mutations{"GameSettings.GenerateRandomWorld": true}))

	assert.Equal(t, map[string]any{
		"GameSettings": map[string]any{"GenerateRandomWorld": true, "GameSpeed": "Normal"},
	}, decode(t, path))
}

func TestPatch_PreservesOtherFieldsAndOrder(t *testing.T) {
	path := writeDoc(t, `{"Zeta": 1, "PublicServer": true, "Name": "Eco", "Nested": {"Deep": [1, 2, {"x": null}]}, "Alpha": "a"}`)

	require.NoError(t, Patch(path, Mutations{
		"PublicServer":  false,
		"Name":          "localhost",
		"RemoteAddress": "localhost:3000",
	}))

	got := decode(t, path)
	assert.Equal(t, float64(1), got["Zeta"])
	assert.Equal(t, "a", got["Alpha"])
	assert.Equal(t, map[string]any{"Deep": []any{float64(1), float64(2), map[string]any{"x": nil}}}, got["Nested"])
	assert.Equal(t, false, got["PublicServer"])
	assert.Equal(t, "localhost", got["Name"])
	assert.Equal(t, "localhost:3000", got["RemoteAddress"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Less(t, strings.Index(text, `"Zeta"`), strings.Index(text, `"Alpha"`), "source key order is kept")
	assert.Contains(t, text, "\n    \"Zeta\": 1,")
}

func TestPatch_IdempotentOutput(t *testing.T) {
	path := writeDoc(t, `{"GameSettings":{"GameSpeed":"Normal"}}`)

	require.NoError(t, Patch(path, Mutations{"GameSettings.GameSpeed": "VeryFast"}))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, Patch(path, Mutations{"GameSettings.GameSpeed": "VeryFast"}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestPatch_WritesTheFileItRead(t *testing.T) {
	dir := t.TempDir()
	difficulty := filepath.Join(dir, "Difficulty.eco")
	network := filepath.Join(dir, "Network.eco")
	require.NoError(t, os.WriteFile(difficulty, []byte(`{"GameSettings":{"GameSpeed":"Normal"}}`), 0o644))
	require.NoError(t, os.WriteFile(network, []byte(`{"Name":"Eco"}`), 0o644))

	require.NoError(t, Patch(difficulty, Mutations{"GameSettings.GameSpeed": "VeryFast"}))

	assert.Equal(t, map[string]any{"Name": "Eco"}, decode(t, network))
	assert.Equal(t, "VeryFast", decode(t, difficulty)["GameSettings"].(map[string]any)["GameSpeed"])
}

func TestPatch_DeepPath(t *testing.T) {
	path := writeDoc(t, `{"HeightmapModule":{"Source":{"Config":{"Seed":1234,"Scale":2}}}}`)

	require.NoError(t, Patch(path, Mutations{"HeightmapModule.Source.Config.Seed": 0}))

	v, ok, err := Get(path, "HeightmapModule.Source.Config.Seed")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(0), v)

	v, ok, err = Get(path, "HeightmapModule.Source.Config.Scale")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(2), v)
}

func TestPatch_MissingParent(t *testing.T) {
	path := writeDoc(t, `{"GameSettings": {}}`)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = Patch(path, Mutations{"Missing.Key": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed patch leaves the file untouched")
}

func TestPatch_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.eco"))
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	assert.Error(t, Patch(writeDoc(t, `{not json`), Mutations{"a": 1}))
	assert.Error(t, Patch(writeDoc(t, `[1,2]`), Mutations{"a": 1}))
	assert.Error(t, Patch(writeDoc(t, `{}`), Mutations{"a.*": 1}))
	assert.Error(t, Patch(writeDoc(t, `{}`), Mutations{"": 1}))
}

func TestPatch_KeepsMarkupCharactersLiteral(t *testing.T) {
	path := writeDoc(t, `{"Description": "", "Name": "old"}`)

	require.NoError(t, Patch(path, Mutations{"Name": "<a&b>", "Description": "<color=red>Tom & Jerry</color>"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name": "<a&b>"`)
	assert.Contains(t, string(data), `"Description": "<color=red>Tom & Jerry</color>"`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.Equal(t, "<a&b>", decode(t, path)["Name"])
}

func TestWrite_KeepsMarkupCharactersLiteral(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Network.eco")

	require.NoError(t, Write(path, map[string]any{"DetailedDescription": "Fish & <b>Chips</b>"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"DetailedDescription\": \"Fish & <b>Chips</b>\"\n}", string(data))
}

func TestPatch_ByteOrderMark(t *testing.T) {
	path := writeDoc(t, "\xEF\xBB\xBF{\"BotToken\": \"secret\", \"Other\": 1}")

	require.NoError(t, Patch(path, Mutations{"BotToken": ""}))

	assert.Equal(t, map[string]any{"BotToken": "", "Other": float64(1)}, decode(t, path))
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Sleep.eco")
	doc := struct {
		AllowFastForward        bool
		SleepTimePassMultiplier int
	}{true, 1000}

	require.NoError(t, Write(path, doc))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded.FilePath)
	assert.Equal(t, true, loaded.Fields["AllowFastForward"])
	assert.Equal(t, float64(1000), loaded.Fields["SleepTimePassMultiplier"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"AllowFastForward\""))
}
