package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"boardpilot/internal/boardctx"
	"boardpilot/internal/executor"
	"boardpilot/internal/interpret"
	"boardpilot/internal/mapper"
	"boardpilot/internal/oracle"
	"boardpilot/internal/recovery"
	"boardpilot/internal/transport"
	"boardpilot/internal/types"
	"boardpilot/internal/validate"
)

// pipeline wires the full instruction-to-mutation stack for one invocation.
type pipeline struct {
	assembler   *boardctx.Assembler
	interpreter *interpret.Interpreter
	mapper      *mapper.Mapper
	validator   *validate.Validator
	executor    *executor.Executor
	batch       *executor.Coordinator
}

func buildPipeline(ctx context.Context) (*pipeline, error) {
	if contextFile == "" {
		return nil, errors.New("a board-context file is required (--context)")
	}
	src, err := newFileSource(contextFile)
	if err != nil {
		return nil, err
	}

	assembler := boardctx.NewAssembler(src, cfg.Context, nil)

	var orc interpret.Oracle
	if completer, err := oracle.NewGenaiCompleter(ctx, cfg.Oracle); err == nil {
		orc = oracle.NewClient(completer, cfg.Oracle)
	} else {
		// Pattern-only interpretation still covers the common phrasings.
		fmt.Fprintf(os.Stderr, "language oracle unavailable (%v); falling back to pattern matching\n", err)
		orc = disabledOracle{}
	}

	registry := transport.NewRegistry()
	registry.RegisterAll(transport.NewHTTPDispatcher(cfg.API.Endpoint, os.Getenv(cfg.API.TokenEnv)))

	exec := executor.New(registry, recovery.NewStrategist(), nil)
	existence := boardctx.NewExistenceCache(src.exists, cfg.Context.CacheSize, 0)

	return &pipeline{
		assembler:   assembler,
		interpreter: interpret.New(orc),
		mapper:      mapper.New(),
		validator:   validate.New(existence),
		executor:    exec,
		batch:       executor.NewCoordinator(exec, cfg.Batch),
	}, nil
}

func (p *pipeline) gather(ctx context.Context) (*types.Context, error) {
	return p.assembler.Gather(ctx, boardctx.Request{
		AccountID: accountID,
		BoardID:   boardID,
		UserID:    userID,
	})
}

// fileSource serves board context from a JSON file, standing in for the live
// API context source. The file holds a types.Context value.
type fileSource struct {
	snap types.Context
}

func newFileSource(path string) (*fileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file: %w", err)
	}
	var snap types.Context
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse context file %s: %w", path, err)
	}
	return &fileSource{snap: snap}, nil
}

func (s *fileSource) Boards(_ context.Context, _, _ string) ([]types.Board, error) {
	return s.snap.Boards, nil
}

func (s *fileSource) Users(_ context.Context, _ string) ([]types.User, error) {
	return s.snap.Users, nil
}

func (s *fileSource) Permissions(_ context.Context, _, _ string) (types.Permissions, error) {
	return s.snap.Permissions, nil
}

// exists answers resource-existence lookups from the loaded file.
func (s *fileSource) exists(_ context.Context, resource, id string) (bool, error) {
	switch resource {
	case "board":
		for _, b := range s.snap.Boards {
			if b.ID == id {
				return true, nil
			}
		}
	case "user":
		for _, u := range s.snap.Users {
			if u.ID == id {
				return true, nil
			}
		}
	case "item":
		for _, b := range s.snap.Boards {
			for _, it := range b.SampleItems {
				if it.ID == id {
					return true, nil
				}
			}
		}
	case "group":
		for _, b := range s.snap.Boards {
			for _, g := range b.Groups {
				if g.ID == id {
					return true, nil
				}
			}
		}
	case "column":
		for _, b := range s.snap.Boards {
			for _, c := range b.Columns {
				if c.ID == id {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// disabledOracle keeps the interpreter running on pattern matches alone when
// no model API key is configured.
type disabledOracle struct{}

var errOracleDisabled = errors.New("language oracle disabled: no API key configured")

func (disabledOracle) Interpret(context.Context, string, *types.Context) (*types.Interpretation, error) {
	return nil, errOracleDisabled
}

func (disabledOracle) Resolve(context.Context, string, *types.Interpretation, string, *types.Context) (*types.Interpretation, error) {
	return nil, errOracleDisabled
}

func (disabledOracle) Suggestions(context.Context, string, *types.Context) []types.Alternative {
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
