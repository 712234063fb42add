package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/tools"
)

type fakeCompleter struct {
	lastReq llm.Request
	resp    *llm.Response
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func weatherCall(args string) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{
		Name:      tools.ToolWeather,
		Arguments: json.RawMessage(args),
	}}}
}

func TestPlannerPlan(t *testing.T) {
	t.Parallel()

	t.Run("object arguments", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: weatherCall(`{"location":"Lisbon","days":3}`)}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		plan := p.Plan(context.Background(), "", nil, "weather in lisbon?")

		require.NotNil(t, plan)
		assert.Equal(t, tools.ToolWeather, plan.Tool)
		assert.Equal(t, "Lisbon", plan.Args.Location)
		assert.Equal(t, 3, plan.Args.Days)
	})

	t.Run("string-encoded arguments", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: weatherCall(`"{\"location\":\"Kyoto\"}"`)}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		plan := p.Plan(context.Background(), "", nil, "kyoto forecast")

		require.NotNil(t, plan)
		assert.Equal(t, "Kyoto", plan.Args.Location)
	})

	t.Run("malformed arguments yield empty args", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: weatherCall(`[1,2,3]`)}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		plan := p.Plan(context.Background(), "", nil, "forecast please")

		require.NotNil(t, plan)
		assert.Equal(t, tools.WeatherArgs{}, plan.Args)
	})

	t.Run("no tool call means no plan", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: &llm.Response{Text: "just chatting"}}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		assert.Nil(t, p.Plan(context.Background(), "", nil, "hello"))
	})

	t.Run("unknown tool is ignored", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: &llm.Response{ToolCalls: []llm.ToolCall{{
			Name: "launchMissiles", Arguments: json.RawMessage(`{}`),
		}}}}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		assert.Nil(t, p.Plan(context.Background(), "", nil, "hello"))
	})

	t.Run("only the first call counts", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: &llm.Response{ToolCalls: []llm.ToolCall{
			{Name: "launchMissiles", Arguments: json.RawMessage(`{}`)},
			{Name: tools.ToolWeather, Arguments: json.RawMessage(`{"location":"Oslo"}`)},
		}}}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		assert.Nil(t, p.Plan(context.Background(), "", nil, "weather in Oslo?"))
	})

	t.Run("backend error falls through silently", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{err: errors.New("backend down")}
		p := NewPlanner(client, "m", "prompt", 256, log.NewNop())

		assert.Nil(t, p.Plan(context.Background(), "", nil, "weather?"))
	})

	t.Run("declares the weather tool and planner instruction", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: &llm.Response{}}
		p := NewPlanner(client, "default-model", "base prompt", 256, log.NewNop())

		p.Plan(context.Background(), "", []llm.Message{{Role: "user", Content: "earlier"}}, "now")

		require.Len(t, client.lastReq.Tools, 1)
		assert.Equal(t, tools.ToolWeather, client.lastReq.Tools[0].Function.Name)
		assert.Equal(t, "default-model", client.lastReq.Model)

		require.NotEmpty(t, client.lastReq.Messages)
		assert.Equal(t, "system", client.lastReq.Messages[0].Role)
		assert.Contains(t, client.lastReq.Messages[0].Content, "base prompt")
		assert.Equal(t, "now", client.lastReq.Messages[len(client.lastReq.Messages)-1].Content)
	})

	t.Run("per-call model override", func(t *testing.T) {
		t.Parallel()
		client := &fakeCompleter{resp: &llm.Response{}}
		p := NewPlanner(client, "default-model", "prompt", 256, log.NewNop())

		p.Plan(context.Background(), "other-model", nil, "hi")

		assert.Equal(t, "other-model", client.lastReq.Model)
	})
}
