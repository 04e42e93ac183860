package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/config"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/label"
	"github.com/colonyops/relabel/internal/session"
	"github.com/colonyops/relabel/pkg/iojson"
)

func intp(v int) *int { return &v }

func defaultTable(t *testing.T) *label.Table {
	t.Helper()
	cfg := config.DefaultConfig()
	table, err := cfg.CodeTable()
	require.NoError(t, err)
	return table
}

func TestApplyLine_Validate(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		name    string
		line    ApplyLine
		wantErr string
	}{
		{name: "commit", line: ApplyLine{Action: "commit", Code: "A2", X: intp(10), Y: intp(20)}},
		{name: "commit default code", line: ApplyLine{Action: "commit", X: intp(0), Y: intp(0), Anchor: "tl"}},
		{name: "keep", line: ApplyLine{Action: "keep"}},
		{name: "undo", line: ApplyLine{Action: "undo"}},
		{name: "missing action", line: ApplyLine{}, wantErr: "action"},
		{name: "unknown action", line: ApplyLine{Action: "delete"}, wantErr: "unknown action"},
		{name: "commit without point", line: ApplyLine{Action: "commit", Code: "A2"}, wantErr: "point"},
		{name: "unknown code", line: ApplyLine{Action: "commit", Code: "Z9", X: intp(1), Y: intp(1)}, wantErr: "code"},
		{name: "bad anchor", line: ApplyLine{Action: "commit", X: intp(1), Y: intp(1), Anchor: "middle"}, wantErr: "anchor"},
		{name: "skip with code", line: ApplyLine{Action: "skip", Code: "A2"}, wantErr: "takes no code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate(table)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyLine_Command(t *testing.T) {
	tests := []struct {
		line ApplyLine
		want session.Command
	}{
		{
			line: ApplyLine{Action: "commit", Code: "A2", X: intp(5), Y: intp(6), Anchor: "tl"},
			want: session.Commit{Code: "A2", Point: geometry.Point{X: 5, Y: 6}, Anchor: geometry.AnchorTopLeft},
		},
		{
			line: ApplyLine{Action: "commit", X: intp(5), Y: intp(6)},
			want: session.Commit{Point: geometry.Point{X: 5, Y: 6}},
		},
		{line: ApplyLine{Action: "keep"}, want: session.Keep{}},
		{line: ApplyLine{Action: "reject"}, want: session.Reject{}},
		{line: ApplyLine{Action: "skip"}, want: session.Skip{}},
		{line: ApplyLine{Action: "undo"}, want: session.Undo{}},
	}

	for _, tt := range tests {
		t.Run(tt.line.Action, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.line.Command())
		})
	}
}

type scriptFake struct {
	items  []catalog.WorkItem
	cursor int
	got    []session.Command
}

func (f *scriptFake) Current() (catalog.WorkItem, bool) {
	if f.cursor >= len(f.items) {
		return catalog.WorkItem{}, false
	}
	return f.items[f.cursor], true
}

func (f *scriptFake) Dispatch(_ context.Context, cmd session.Command) (session.Outcome, error) {
	f.got = append(f.got, cmd)
	item, ok := f.Current()
	if !ok {
		return session.Outcome{Complete: true}, session.ErrSessionComplete
	}
	f.cursor++
	return session.Outcome{Kind: history.Keep, Item: item, Cursor: f.cursor}, nil
}

func newScriptFake() *scriptFake {
	return &scriptFake{items: []catalog.WorkItem{{ID: "dog/a_A1_001.jpg"}, {ID: "dog/b_A2_002.jpg"}}}
}

func decodeResults(t *testing.T, out string) []ApplyResult {
	t.Helper()
	var results []ApplyResult
	for line := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
		var r ApplyResult
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		results = append(results, r)
	}
	return results
}

func TestApplyScript(t *testing.T) {
	fake := newScriptFake()
	input := `{"action":"keep","item":"dog/a_A1_001.jpg"}
{"action":"commit","code":"A7","x":10,"y":10}`

	var out bytes.Buffer
	err := applyScript(context.Background(), fake, defaultTable(t), iojson.NewReader[ApplyLine](strings.NewReader(input)), &out, false)
	require.NoError(t, err)

	results := decodeResults(t, out.String())
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.Equal(t, 1, results[0].Line)
	require.NotNil(t, results[1].Outcome)
	assert.Equal(t, "dog/b_A2_002.jpg", results[1].Outcome.Item.ID)
	assert.Len(t, fake.got, 2)
}

func TestApplyScript_StopsAtFirstFailure(t *testing.T) {
	fake := newScriptFake()
	input := `{"action":"keep","item":"dog/other.jpg"}
{"action":"keep"}`

	var out bytes.Buffer
	err := applyScript(context.Background(), fake, defaultTable(t), iojson.NewReader[ApplyLine](strings.NewReader(input)), &out, false)
	require.ErrorIs(t, err, errApplyFailed)

	results := decodeResults(t, out.String())
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Error, "current item is dog/a_A1_001.jpg")
	assert.Empty(t, fake.got, "a mismatched item is never dispatched")
}

func TestApplyScript_KeepGoing(t *testing.T) {
	fake := newScriptFake()
	input := `{"action":"explode"}
{"action":"keep"}
{"action":"keep"}
{"action":"keep"}`

	var out bytes.Buffer
	err := applyScript(context.Background(), fake, defaultTable(t), iojson.NewReader[ApplyLine](strings.NewReader(input)), &out, true)
	require.ErrorIs(t, err, errApplyFailed)

	results := decodeResults(t, out.String())
	require.Len(t, results, 4)
	assert.False(t, results[0].OK)
	assert.True(t, results[1].OK)
	assert.True(t, results[2].OK)
	assert.False(t, results[3].OK)
	assert.Contains(t, results[3].Error, session.ErrSessionComplete.Error())
}
