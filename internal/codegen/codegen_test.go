package codegen

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/kanban"
	"github.com/cwaproj/cwa/internal/memory"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/store"
)

func tempGenerator(t *testing.T) (*Generator, *services.Services) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := store.NewWithClient(client, "proj1")
	board := kanban.NewBoard(s, domain.DefaultKanbanConfig())
	mem := memory.NewService(s, nil, nil)
	svc := services.New(s, board, mem, nil)
	return New(svc, "proj1", "cwa", "cwa"), svc
}

func seedProject(t *testing.T, svc *services.Services) {
	t.Helper()
	ctx := context.Background()

	if _, err := svc.SetTechStack(ctx, "proj1", []string{"rust", "axum", "neo4j"}); err != nil {
		t.Fatalf("SetTechStack: %v", err)
	}
	c, err := svc.CreateContext(ctx, "Auth", "authentication and sessions")
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	if _, err := svc.CreateDomainObject(ctx, c.ID, domain.KindAggregate, "Session",
		[]string{"a session belongs to exactly one user"}, nil); err != nil {
		t.Fatalf("CreateDomainObject: %v", err)
	}

	sp, err := svc.CreateSpec(ctx, "Auth", "login flow", domain.PriorityHigh,
		[]string{"User can register", "User can login"}, nil)
	if err != nil {
		t.Fatalf("CreateSpec: %v", err)
	}
	for _, status := range []string{domain.SpecActive, domain.SpecInReview, domain.SpecAccepted} {
		if _, err := svc.UpdateSpecStatus(ctx, sp.ID, status); err != nil {
			t.Fatalf("UpdateSpecStatus %s: %v", status, err)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	gen, svc := tempGenerator(t)
	seedProject(t, svc)
	ctx := context.Background()

	first, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("artifact count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Path != second[i].Path {
			t.Fatalf("artifact order changed at %d: %s vs %s", i, first[i].Path, second[i].Path)
		}
		if !bytes.Equal(first[i].Content, second[i].Content) {
			t.Fatalf("artifact %s is not byte-identical across runs", first[i].Path)
		}
	}
}

func TestGenerateCoversContextAgentsAndSpecSkills(t *testing.T) {
	gen, svc := tempGenerator(t)
	seedProject(t, svc)

	artifacts, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	byPath := map[string]Artifact{}
	for _, a := range artifacts {
		byPath[a.Path] = a
	}

	ctxAgent, ok := byPath[".claude/agents/ctx-auth.md"]
	if !ok {
		t.Fatal("expected a per-context agent file for the Auth context")
	}
	if !strings.Contains(string(ctxAgent.Content), "a session belongs to exactly one user") {
		t.Fatal("expected the context agent to carry its domain objects' invariants")
	}

	skill, ok := byPath[".claude/skills/spec-auth/SKILL.md"]
	if !ok {
		t.Fatal("expected a skill file for the accepted Auth spec")
	}
	for _, crit := range []string{"User can register", "User can login"} {
		if !strings.Contains(string(skill.Content), crit) {
			t.Fatalf("expected acceptance criterion %q verbatim in the spec skill", crit)
		}
	}

	stack, ok := byPath[".cwa/stack.json"]
	if !ok {
		t.Fatal("expected .cwa/stack.json")
	}
	if !strings.Contains(string(stack.Content), `"rust"`) {
		t.Fatalf("expected tech stack in stack.json, got %s", stack.Content)
	}
	if strings.Contains(string(stack.Content), "updated_at") {
		t.Fatal("stack.json must not carry timestamps")
	}
}

func TestApplyWritesExactlyDryRunPaths(t *testing.T) {
	gen, svc := tempGenerator(t)
	seedProject(t, svc)
	ctx := context.Background()

	grouped, err := gen.DryRun(ctx)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	var planned []string
	for _, paths := range grouped {
		planned = append(planned, paths...)
	}
	sort.Strings(planned)

	destDir := t.TempDir()
	result, err := gen.Apply(ctx, destDir)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	written := append([]string(nil), result.Written...)
	sort.Strings(written)

	if len(written) != len(planned) {
		t.Fatalf("dry-run planned %d paths, apply wrote %d", len(planned), len(written))
	}
	for i := range written {
		if written[i] != planned[i] {
			t.Fatalf("path mismatch at %d: planned %s, wrote %s", i, planned[i], written[i])
		}
	}
	for _, p := range written {
		if _, err := os.Stat(filepath.Join(destDir, p)); err != nil {
			t.Fatalf("expected %s on disk: %v", p, err)
		}
	}
}
