package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"boardpilot/internal/config"
	"boardpilot/internal/types"
)

// fakeCompleter returns scripted responses/errors in order.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func testClient(c Completer) (*Client, *[]time.Duration) {
	cl := NewClient(c, config.OracleConfig{TimeoutSeconds: 30, MaxRetries: 3})
	var slept []time.Duration
	cl.sleep = func(d time.Duration) { slept = append(slept, d) }
	return cl, &slept
}

func TestInterpretDecodesWireFormat(t *testing.T) {
	fake := &fakeCompleter{responses: []string{
		`Here you go: {"operation": "ITEM_CREATE", "confidence": 250, "parameters": {"itemName": "Fix login bug"}}`,
	}}
	cl, _ := testClient(fake)

	got, err := cl.Interpret(context.Background(), `create "Fix login bug"`, &types.Context{})
	require.NoError(t, err)
	require.Equal(t, types.OpItemCreate, got.Kind)
	require.Equal(t, 100, got.Confidence, "confidence must be clamped")
	require.Equal(t, "Fix login bug", got.Param("itemName"))
}

func TestInterpretUnknownOperationDegrades(t *testing.T) {
	fake := &fakeCompleter{responses: []string{`{"operation": "LAUNCH_ROCKET", "confidence": 90}`}}
	cl, _ := testClient(fake)

	got, err := cl.Interpret(context.Background(), "launch the rocket", &types.Context{})
	require.NoError(t, err)
	require.Equal(t, types.OpUnknown, got.Kind)
	require.NotNil(t, got.Parameters)
}

func TestCompleteRetriesWithBackoff(t *testing.T) {
	fake := &fakeCompleter{
		errs:      []error{errors.New("transient"), errors.New("transient")},
		responses: []string{"", "", `{"operation": "ITEM_DELETE", "confidence": 70}`},
	}
	cl, slept := testClient(fake)

	got, err := cl.Interpret(context.Background(), "delete it", &types.Context{})
	require.NoError(t, err)
	require.Equal(t, types.OpItemDelete, got.Kind)
	require.Equal(t, 3, fake.calls)
	require.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestCompleteExhaustsRetries(t *testing.T) {
	boom := errors.New("model unavailable")
	fake := &fakeCompleter{errs: []error{boom, boom, boom}}
	cl, _ := testClient(fake)

	_, err := cl.Interpret(context.Background(), "anything", &types.Context{})
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, fake.calls)
}

func TestInterpretParseFailure(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"I could not decide, sorry."}}
	cl, _ := testClient(fake)

	_, err := cl.Interpret(context.Background(), "do a thing", &types.Context{})
	require.Error(t, err)
	oe, ok := types.AsOpError(err)
	require.True(t, ok)
	require.Equal(t, types.ErrParse, oe.Kind)
}

func TestSuggestionsDegradeToEmpty(t *testing.T) {
	fake := &fakeCompleter{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	cl, _ := testClient(fake)

	alts := cl.Suggestions(context.Background(), "update something", &types.Context{})
	require.Empty(t, alts)
}

func TestSuggestionsCapAtThree(t *testing.T) {
	fake := &fakeCompleter{responses: []string{`{"alternatives": [
		{"operation": "ITEM_UPDATE", "description": "update an item", "confidence": 60},
		{"operation": "STATUS_UPDATE", "description": "change a status", "confidence": 55},
		{"operation": "BOARD_UPDATE", "description": "update a board", "confidence": 40},
		{"operation": "ITEM_DELETE", "description": "delete something", "confidence": 10}
	]}`}}
	cl, _ := testClient(fake)

	alts := cl.Suggestions(context.Background(), "update something", &types.Context{})
	require.Len(t, alts, 3)
	require.Equal(t, types.OpItemUpdate, alts[0].Kind)
}
