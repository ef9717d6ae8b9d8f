package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/prasertk/shopassist/agent/contract"
)

func (o *Orchestrator) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[TurnInput, contractx.TurnResult], error) {
	graph := compose.NewGraph[TurnInput, contractx.TurnResult]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in TurnInput) (*turnState, error) {
			return o.validateTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("load_conversation",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return o.loadConversation(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_conversation: %w", err)
	}

	if err := graph.AddLambdaNode("append_user_message",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return o.appendUserMessage(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node append_user_message: %w", err)
	}

	if err := graph.AddLambdaNode("reason",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return o.reason(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node reason: %w", err)
	}

	if err := graph.AddLambdaNode("run_tools",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return o.runTools(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_tools: %w", err)
	}

	if err := graph.AddLambdaNode("narrate",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return o.narrate(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node narrate: %w", err)
	}

	if err := graph.AddLambdaNode("complete_turn",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (contractx.TurnResult, error) {
			return o.finishTurn(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node complete_turn: %w", err)
	}

	if err := graph.AddLambdaNode("reply_direct",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (contractx.TurnResult, error) {
			st, err := o.replyDirect(in)
			if err != nil {
				return contractx.TurnResult{}, err
			}
			return o.finishTurn(ctx, st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node reply_direct: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnState) (string, error) {
			if in == nil || in.Conv == nil {
				return "", fmt.Errorf("%w: turn state is nil", contractx.ErrProtocol)
			}
			if last := in.Conv.Last(); last != nil && last.HasToolCalls() {
				return "run_tools", nil
			}
			return "reply_direct", nil
		},
		map[string]bool{
			"run_tools":    true,
			"reply_direct": true,
		},
	)

	if err := graph.AddBranch("reason", branch); err != nil {
		return nil, fmt.Errorf("add reason branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "load_conversation"},
		{"load_conversation", "append_user_message"},
		{"append_user_message", "reason"},
		{"run_tools", "narrate"},
		{"narrate", "complete_turn"},
		{"complete_turn", compose.END},
		{"reply_direct", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
