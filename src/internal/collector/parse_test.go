// FILE: src/internal/collector/parse_test.go
package collector

import (
	"testing"
	"time"

	"chronicle/src/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestParseRecordText(t *testing.T) {
	var p fastjson.Parser
	line := []byte(`{"time":"2026-08-30T10:00:00.5Z","entity":"logs/info","kind":"text","text":{"message":"hello","level":"INFO"}}`)

	rec, err := parseRecord(&p, line)
	require.NoError(t, err)

	assert.Equal(t, "logs/info", rec.Entity)
	assert.Equal(t, record.KindText, rec.Kind)
	require.NotNil(t, rec.Text)
	assert.Equal(t, "hello", rec.Text.Message)
	assert.Equal(t, record.LevelInfo, rec.Text.Level)

	expected := time.Date(2026, 8, 30, 10, 0, 0, 500000000, time.UTC)
	assert.True(t, rec.Time.Equal(expected))
}

func TestParseRecordScalarWithTimelines(t *testing.T) {
	var p fastjson.Parser
	line := []byte(`{"entity":"metrics/loss","kind":"scalar","scalar":{"value":0.125},` +
		`"timelines":{"step":{"kind":"sequence","sequence":42},"elapsed":{"kind":"seconds","seconds":1.5}}}`)

	rec, err := parseRecord(&p, line)
	require.NoError(t, err)

	require.NotNil(t, rec.Scalar)
	assert.Equal(t, 0.125, rec.Scalar.Value)

	require.Len(t, rec.Timelines, 2)
	assert.Equal(t, int64(42), rec.Timelines["step"].Sequence)
	assert.Equal(t, 1.5, rec.Timelines["elapsed"].Seconds)
}

func TestParseRecordImage(t *testing.T) {
	var p fastjson.Parser
	// "AAEC" is base64 for bytes 0, 1, 2
	line := []byte(`{"entity":"camera/front","kind":"image","image":{"width":1,"height":1,"channels":3,"encoding":"raw","data":"AAEC"}}`)

	rec, err := parseRecord(&p, line)
	require.NoError(t, err)

	require.NotNil(t, rec.Image)
	assert.Equal(t, 1, rec.Image.Width)
	assert.Equal(t, []byte{0, 1, 2}, rec.Image.Data)
}

func TestParseRecordDocument(t *testing.T) {
	var p fastjson.Parser
	line := []byte(`{"entity":"state/params","kind":"document","document":{"body":"{\"lr\":0.01}","media_type":"application/json"}}`)

	rec, err := parseRecord(&p, line)
	require.NoError(t, err)

	require.NotNil(t, rec.Document)
	assert.Equal(t, `{"lr":0.01}`, rec.Document.Body)
	assert.Equal(t, "application/json", rec.Document.MediaType)
}

func TestParseRecordDefaultsTimeToNow(t *testing.T) {
	var p fastjson.Parser
	line := []byte(`{"entity":"logs/info","kind":"text","text":{"message":"no time"}}`)

	before := time.Now()
	rec, err := parseRecord(&p, line)
	require.NoError(t, err)
	assert.False(t, rec.Time.Before(before))
}

func TestParseRecordErrors(t *testing.T) {
	var p fastjson.Parser

	cases := []struct {
		name string
		line string
	}{
		{"not json", `not json at all`},
		{"empty entity", `{"kind":"text","text":{"message":"x"}}`},
		{"unknown kind", `{"entity":"a","kind":"tensor"}`},
		{"missing payload", `{"entity":"a","kind":"scalar"}`},
		{"bad timestamp", `{"entity":"a","kind":"text","time":"yesterday","text":{"message":"x"}}`},
		{"bad image data", `{"entity":"a","kind":"image","image":{"width":1,"height":1,"channels":1,"encoding":"raw","data":"!!!"}}`},
		{"unknown timeline kind", `{"entity":"a","kind":"text","text":{"message":"x"},"timelines":{"t":{"kind":"frames","sequence":1}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseRecord(&p, []byte(tc.line))
			assert.Error(t, err)
		})
	}
}
