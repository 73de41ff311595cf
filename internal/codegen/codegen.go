// Package codegen deterministically renders the `.claude/` agent-harness
// tree, the root `CLAUDE.md`/`.mcp.json` files, and the `.cwa/` project
// metadata files from the current project state, and applies them to disk
// atomically.
package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/services"
)

// Artifact kinds.
const (
	KindAgent        = "agent"
	KindSkill        = "skill"
	KindCommand      = "command"
	KindRule         = "rule"
	KindHooks        = "hooks"
	KindDesignSystem = "design-system"
	KindRoot         = "root"
	KindMCPConfig    = "mcp-config"
	KindStack        = "stack"
	KindConstitution = "constitution"
)

// Artifact is one generated file: its destination path (relative to the
// project root) and rendered content.
type Artifact struct {
	Path    string
	Kind    string
	Content []byte
}

// Generator renders the full artifact set from the current project state.
type Generator struct {
	svc        *services.Services
	projectID  string
	serverName string
	mcpCommand string
}

// New builds a Generator. serverName and mcpCommand populate the generated
// .mcp.json entry (the command used to launch the MCP server itself).
func New(svc *services.Services, projectID, serverName, mcpCommand string) *Generator {
	return &Generator{svc: svc, projectID: projectID, serverName: serverName, mcpCommand: mcpCommand}
}

// Generate renders every artifact in memory without touching disk. The
// result is sorted by path for determinism.
func (g *Generator) Generate(ctx context.Context) ([]Artifact, error) {
	project, err := g.svc.GetProjectInfo(ctx, g.projectID)
	if err != nil {
		return nil, err
	}
	summary, err := g.svc.GetContextSummary(ctx, g.projectID)
	if err != nil {
		return nil, err
	}
	model, err := g.svc.GetDomainModel(ctx)
	if err != nil {
		return nil, err
	}
	glossary, err := g.svc.GetGlossary(ctx)
	if err != nil {
		return nil, err
	}
	decisions, err := g.svc.ListDecisions(ctx)
	if err != nil {
		return nil, err
	}
	specs, err := g.svc.ListSpecs(ctx)
	if err != nil {
		return nil, err
	}

	var artifacts []Artifact
	artifacts = append(artifacts, g.renderAgents(project, model)...)
	artifacts = append(artifacts, g.renderSkills(specs)...)
	artifacts = append(artifacts, g.renderCommands()...)
	artifacts = append(artifacts, g.renderRules()...)
	artifacts = append(artifacts, Artifact{Path: ".claude/hooks.json", Kind: KindHooks, Content: renderHooks(project, model)})
	if ds := g.renderDesignSystem(project); ds != nil {
		artifacts = append(artifacts, *ds)
	}
	artifacts = append(artifacts, Artifact{Path: "CLAUDE.md", Kind: KindRoot, Content: renderClaudeMD(project, summary, model)})
	artifacts = append(artifacts, Artifact{Path: ".mcp.json", Kind: KindMCPConfig, Content: g.renderMCPConfig()})
	artifacts = append(artifacts, Artifact{Path: ".cwa/stack.json", Kind: KindStack, Content: renderStackJSON(project)})
	artifacts = append(artifacts, Artifact{Path: ".cwa/constitution.md", Kind: KindConstitution, Content: renderConstitution(project, glossary, decisions)})

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts, nil
}

// DryRun renders every artifact and reports the paths it would write,
// grouped by kind, without writing anything to disk.
func (g *Generator) DryRun(ctx context.Context) (map[string][]string, error) {
	artifacts, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}
	grouped := map[string][]string{}
	for _, a := range artifacts {
		grouped[a.Kind] = append(grouped[a.Kind], a.Path)
	}
	return grouped, nil
}

// ApplyResult partitions an Apply run's artifact paths by outcome: Written
// holds paths that landed in destDir, Failed holds the path (if any) whose
// write aborted the run. Artifacts holds the full rendered set that was
// attempted, for callers that want content alongside the path lists.
type ApplyResult struct {
	Artifacts []Artifact
	Written   []string
	Failed    []string
}

// Apply renders every artifact and writes it under destDir atomically: every
// artifact is first written into a temp sibling directory, then each is
// renamed into place individually. A per-file write failure, at either
// stage, aborts all further writes; the returned ApplyResult still reports
// which paths had already succeeded and which path failed, alongside the
// abort error.
func (g *Generator) Apply(ctx context.Context, destDir string) (*ApplyResult, error) {
	artifacts, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}

	stageDir, err := os.MkdirTemp(filepath.Dir(destDir), ".cwa-codegen-*")
	if err != nil {
		return nil, fmt.Errorf("staging codegen output: %w", err)
	}
	defer os.RemoveAll(stageDir)

	result := &ApplyResult{Artifacts: artifacts}

	for _, a := range artifacts {
		stagePath := filepath.Join(stageDir, a.Path)
		if err := os.MkdirAll(filepath.Dir(stagePath), 0o755); err != nil {
			result.Failed = append(result.Failed, a.Path)
			return result, fmt.Errorf("staging %s: %w", a.Path, err)
		}
		if err := os.WriteFile(stagePath, a.Content, 0o644); err != nil {
			result.Failed = append(result.Failed, a.Path)
			return result, fmt.Errorf("staging %s: %w", a.Path, err)
		}
	}

	for _, a := range artifacts {
		finalPath := filepath.Join(destDir, a.Path)
		if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
			result.Failed = append(result.Failed, a.Path)
			return result, fmt.Errorf("preparing %s: %w", a.Path, err)
		}
		if err := os.Rename(filepath.Join(stageDir, a.Path), finalPath); err != nil {
			result.Failed = append(result.Failed, a.Path)
			return result, fmt.Errorf("applying %s: %w", a.Path, err)
		}
		result.Written = append(result.Written, a.Path)
	}
	return result, nil
}

// RenderConstitution renders the .cwa/constitution.md body on demand, for
// callers (like the project://constitution resource) that want the current
// text without running a full Generate/Apply pass.
func (g *Generator) RenderConstitution(ctx context.Context) (string, error) {
	project, err := g.svc.GetProjectInfo(ctx, g.projectID)
	if err != nil {
		return "", err
	}
	glossary, err := g.svc.GetGlossary(ctx)
	if err != nil {
		return "", err
	}
	decisions, err := g.svc.ListDecisions(ctx)
	if err != nil {
		return "", err
	}
	return string(renderConstitution(project, glossary, decisions)), nil
}

func techStackOrDefault(p *domain.Project) []string {
	if len(p.TechStack) == 0 {
		return []string{"go"}
	}
	return p.TechStack
}
