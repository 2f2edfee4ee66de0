package snapshot_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/envadmin/internal/core/snapshot"
)

func TestEventMetadata(t *testing.T) {
	name, id := snapshot.EventMetadata("/api/v1/test-resource", "post")
	assert.Equal(t, "POST /api/v1/test-resource", name)
	assert.Equal(t, "POST_API_V1_TEST_RESOURCE", id)

	_, id = snapshot.EventMetadata("/v1/vehicles/{id}/emission-tests", "GET")
	assert.Equal(t, "GET_V1_VEHICLES_ID_EMISSION_TESTS", id)

	name, id = snapshot.EventMetadata("", "delete")
	assert.Equal(t, "DELETE /", name)
	assert.Equal(t, "DELETE", id)
}

func TestModuleFromPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/test-resource": "test-resource",
		"/v1/vehicles/{id}":     "vehicles",
		"/v2/audit-logs":        "audit-logs",
		"/":                     "root",
		"":                      "root",
		"/api":                  "root",
		"/Sessions/current":     "sessions",
		"/vehicles":             "vehicles",
		"/value-added/v1":       "value-added",
	}
	for path, want := range cases {
		assert.Equal(t, want, snapshot.ModuleFromPath(path), path)
	}
}

func TestMask_NestedSensitiveKeys(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	in := map[string]any{
		"password": "x",
		"a": map[string]any{
			"b": map[string]any{"token": "y", "c": "z"},
		},
	}

	out := m.Mask(in).(map[string]any)
	assert.Equal(t, snapshot.MaskToken, out["password"])
	b := out["a"].(map[string]any)["b"].(map[string]any)
	assert.Equal(t, snapshot.MaskToken, b["token"])
	assert.Equal(t, "z", b["c"])

	// The input is not modified.
	assert.Equal(t, "x", in["password"])
}

func TestMask_CaseInsensitiveAndNonStringValues(t *testing.T) {
	m := snapshot.NewMasker([]string{"Secret", "pin"}, 0)
	out := m.Mask(map[string]any{
		"SECRET": map[string]any{"nested": 1},
		"Pin":    json.Number("1234"),
		"items": []any{
			map[string]any{"secret": true, "name": "ok"},
			"plain",
		},
	}).(map[string]any)

	assert.Equal(t, snapshot.MaskToken, out["SECRET"])
	assert.Equal(t, snapshot.MaskToken, out["Pin"])
	items := out["items"].([]any)
	assert.Equal(t, snapshot.MaskToken, items[0].(map[string]any)["secret"])
	assert.Equal(t, "ok", items[0].(map[string]any)["name"])
	assert.Equal(t, "plain", items[1])
}

func TestMask_UnknownTypesPassThrough(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	type opaque struct{ Password string }
	v := opaque{Password: "x"}
	assert.Equal(t, v, m.Mask(v))
	assert.Nil(t, m.Mask(nil))
	assert.Equal(t, 3.5, m.Mask(3.5))
}

func TestBuildPayload_TruncationPrecedesMasking(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	// Only the password field is large: masked, this would be tiny.
	body, err := json.Marshal(map[string]any{
		"password": strings.Repeat("p", snapshot.MaxPayloadChars),
		"plate":    "ABC-123",
	})
	require.NoError(t, err)

	got := m.BuildPayload(body, "application/json")
	assert.Equal(t, map[string]any{"truncated": true, "max_chars": snapshot.MaxPayloadChars}, got)
}

func TestBuildPayload_BudgetCountsCharactersNotBytes(t *testing.T) {
	m := snapshot.NewMasker(nil, 20)
	// 10 runes, 20 bytes.
	body := []byte(`"ąčęėįšųūžą"`)
	got := m.BuildPayload(body, "application/json")
	assert.Equal(t, "ąčęėįšųūžą", got)

	got = m.BuildPayload([]byte(`"`+strings.Repeat("a", 30)+`"`), "application/json")
	assert.Equal(t, m.TruncationMarker(), got)
}

func TestBuildPayload_JSON(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	got := m.BuildPayload([]byte(`{"year": 2019, "access_token": "abc", "tags": [{"otp": "1"}]}`), "application/json; charset=utf-8")

	obj := got.(map[string]any)
	assert.Equal(t, json.Number("2019"), obj["year"])
	assert.Equal(t, snapshot.MaskToken, obj["access_token"])
	assert.Equal(t, snapshot.MaskToken, obj["tags"].([]any)[0].(map[string]any)["otp"])
}

func TestBuildPayload_NonObjectTopLevel(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	assert.Equal(t, []any{json.Number("1"), "two"}, m.BuildPayload([]byte(`[1,"two"]`), ""))
	assert.Equal(t, true, m.BuildPayload([]byte(`true`), ""))
}

func TestBuildPayload_Form(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	got := m.BuildPayload([]byte("user=alice&password=hunter2&tag=a&tag=b"), "application/x-www-form-urlencoded")

	assert.Equal(t, map[string]any{
		"user":     "alice",
		"password": snapshot.MaskToken,
		"tag":      []any{"a", "b"},
	}, got)
}

func TestBuildPayload_FallbackSummaries(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)

	assert.Nil(t, m.BuildPayload(nil, "application/json"))

	text := m.BuildPayload([]byte("not json {"), "text/plain").(map[string]any)
	assert.Equal(t, true, text["unparsed"])
	assert.Equal(t, "not json {", text["preview"])
	assert.Equal(t, 10, text["size"])

	long := m.BuildPayload([]byte(strings.Repeat("x", 1000)), "text/plain").(map[string]any)
	assert.Len(t, long["preview"], 256)

	bin := m.BuildPayload([]byte{0xff, 0xfe, 0x00, 0x01}, "application/octet-stream").(map[string]any)
	assert.Equal(t, map[string]any{"unparsed": true, "binary": true, "size": 4}, bin)

	trailing := m.BuildPayload([]byte(`{"a":1} {"b":2}`), "application/json").(map[string]any)
	assert.Equal(t, true, trailing["unparsed"])
}

func TestMaskQuery(t *testing.T) {
	m := snapshot.NewMasker(nil, 0)
	q := url.Values{"status": {"registered"}, "token": {"abc"}, "id": {"1", "2"}}

	assert.Equal(t, map[string]any{
		"status": "registered",
		"token":  snapshot.MaskToken,
		"id":     []any{"1", "2"},
	}, m.MaskQuery(q))
	assert.Nil(t, m.MaskQuery(nil))
}
