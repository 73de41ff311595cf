package codegen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/services"
)

func (g *Generator) renderAgents(project *domain.Project, model []services.ContextWithObjects) []Artifact {
	var out []Artifact
	out = append(out, Artifact{
		Path: ".claude/agents/coordinator.md",
		Kind: KindAgent,
		Content: []byte(fmt.Sprintf(`---
name: coordinator
description: Keeps %s's specs, tasks, and decisions consistent across the team
---

# Coordinator

Use the cwa MCP tools before starting work: get_context_summary for the
current state, get_current_task for what to pick up, get_wip_status before
moving a card, and observe/add_decision to record what you learn as you go.
`, project.Name)),
	})
	for _, c := range model {
		var b strings.Builder
		fmt.Fprintf(&b, "---\nname: %s\ndescription: %s bounded-context specialist for %s\n---\n\n# %s\n\n",
			slug(c.Context.Name), c.Context.Name, project.Name, c.Context.Name)
		if c.Context.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Context.Description)
		}
		if len(c.Objects) > 0 {
			b.WriteString("## Domain objects\n\n")
			for _, o := range c.Objects {
				fmt.Fprintf(&b, "- **%s** (%s)\n", o.Name, o.Kind)
				for _, inv := range o.Invariants {
					fmt.Fprintf(&b, "  - invariant: %s\n", inv)
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("Work inside this context's ubiquitous language. Check get_glossary before introducing new terms, and keep every listed invariant intact.\n")
		out = append(out, Artifact{
			Path:    fmt.Sprintf(".claude/agents/ctx-%s.md", slug(c.Context.Name)),
			Kind:    KindAgent,
			Content: []byte(b.String()),
		})
	}
	for _, tag := range techStackOrDefault(project) {
		out = append(out, Artifact{
			Path: fmt.Sprintf(".claude/agents/%s.md", slug(tag)),
			Kind: KindAgent,
			Content: []byte(fmt.Sprintf(`---
name: %s
description: %s specialist for %s
---

Follow the project's declared conventions for %s. Check get_domain_model and
get_glossary before introducing new terms; record any non-obvious decision
with add_decision.
`, slug(tag), tag, project.Name, tag)),
		})
	}
	return out
}

func (g *Generator) renderSkills(specs []*domain.Spec) []Artifact {
	skills := []struct{ name, desc, body string }{
		{"kanban", "Move work through the project board", "Use get_current_task, list_tasks, create_task, and update_task_status. Respect WIP limits reported by get_wip_status; pass force only to override a soft block, never a hard one."},
		{"specs", "Author and validate specifications", "Use create_spec, add_acceptance_criteria, and validate_spec before moving a spec to in_review. generate_tasks turns accepted acceptance criteria into backlog cards."},
		{"memory", "Capture durable project knowledge", "Use observe for structured events and memory_add for informal notes. Prefer hybrid_search over a single search mode when you are not sure whether the answer is a literal keyword match or a paraphrase."},
	}
	out := make([]Artifact, 0, len(skills)+len(specs))
	for _, s := range skills {
		out = append(out, Artifact{
			Path: fmt.Sprintf(".claude/skills/%s/SKILL.md", s.name),
			Kind: KindSkill,
			Content: []byte(fmt.Sprintf(`---
name: %s
description: %s
---

%s
`, s.name, s.desc, s.body)),
		})
	}
	for _, sp := range specs {
		if sp.Status != domain.SpecAccepted {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "---\nname: spec-%s\ndescription: Implement \"%s\"\n---\n\n# %s\n\n", slug(sp.Title), sp.Title, sp.Title)
		if sp.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", sp.Description)
		}
		b.WriteString("## Acceptance criteria\n\n")
		for _, crit := range sp.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", crit)
		}
		b.WriteString("\nEvery criterion above must hold before the spec moves to completed. Track each one on the board via generate_tasks.\n")
		out = append(out, Artifact{
			Path:    fmt.Sprintf(".claude/skills/spec-%s/SKILL.md", slug(sp.Title)),
			Kind:    KindSkill,
			Content: []byte(b.String()),
		})
	}
	return out
}

func (g *Generator) renderCommands() []Artifact {
	commands := []struct{ name, desc string }{
		{"next-task", "Report what to work on next via get_next_steps"},
		{"board-status", "Summarize the kanban board via get_wip_status and list_tasks"},
	}
	out := make([]Artifact, 0, len(commands))
	for _, c := range commands {
		out = append(out, Artifact{
			Path:    fmt.Sprintf(".claude/commands/%s.md", c.name),
			Kind:    KindCommand,
			Content: []byte(fmt.Sprintf("---\ndescription: %s\n---\n\n%s.\n", c.desc, c.desc)),
		})
	}
	return out
}

func (g *Generator) renderRules() []Artifact {
	rules := []struct{ name, body string }{
		{"wip-limits", "Never move a task into a column that would exceed its configured WIP limit. The WIP limit is a HARD_BLOCK guard, and force never overrides a HARD_BLOCK guard; move another card out or raise the limit with set_wip_limit first."},
		{"spec-before-task", "A task's spec_id, when set, must reference a spec that is not archived. Create or reopen the spec first."},
	}
	out := make([]Artifact, 0, len(rules))
	for _, r := range rules {
		out = append(out, Artifact{
			Path:    fmt.Sprintf(".claude/rules/%s.md", r.name),
			Kind:    KindRule,
			Content: []byte(r.body + "\n"),
		})
	}
	return out
}

// hookEntry matches the .claude/hooks.json schema: a matcher over tool names
// (or prompt text) and the command lines to run when it fires.
type hookEntry struct {
	Matcher string     `json:"matcher"`
	Hooks   []hookSpec `json:"hooks"`
}

type hookSpec struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// stackHooks maps a tech-stack tag to the command run after every file edit,
// so generated hooks keep the working tree consistent with the stack's own
// tooling rather than a generic linter.
var stackHooks = map[string]string{
	"go":         "gofmt -l .",
	"rust":       "cargo fmt --check",
	"python":     "ruff check .",
	"typescript": "npx tsc --noEmit",
	"javascript": "npx eslint .",
}

func renderHooks(project *domain.Project, model []services.ContextWithObjects) []byte {
	var post []hookEntry
	for _, tag := range techStackOrDefault(project) {
		cmd, ok := stackHooks[strings.ToLower(tag)]
		if !ok {
			continue
		}
		post = append(post, hookEntry{
			Matcher: "Edit|Write",
			Hooks:   []hookSpec{{Type: "command", Command: cmd}},
		})
	}

	var stop []hookEntry
	hasInvariants := false
	for _, c := range model {
		for _, o := range c.Objects {
			if len(o.Invariants) > 0 {
				hasInvariants = true
			}
		}
	}
	if hasInvariants {
		stop = append(stop, hookEntry{
			Matcher: "",
			Hooks:   []hookSpec{{Type: "command", Command: "echo 'review domain invariants before finishing: see .claude/agents/ctx-*.md'"}},
		})
	}

	hooks := map[string][]hookEntry{
		"PreToolUse":       {},
		"PostToolUse":      post,
		"UserPromptSubmit": {},
		"Stop":             stop,
	}
	for k, v := range hooks {
		if v == nil {
			hooks[k] = []hookEntry{}
		}
	}
	b, _ := json.MarshalIndent(hooks, "", "  ")
	return append(b, '\n')
}

func (g *Generator) renderDesignSystem(project *domain.Project) *Artifact {
	hasFrontend := false
	for _, tag := range project.TechStack {
		lower := strings.ToLower(tag)
		if strings.Contains(lower, "react") || strings.Contains(lower, "frontend") || strings.Contains(lower, "vue") {
			hasFrontend = true
			break
		}
	}
	if !hasFrontend {
		return nil
	}
	return &Artifact{
		Path:    ".claude/design-system.md",
		Kind:    KindDesignSystem,
		Content: []byte("# Design System\n\nNo design tokens have been recorded yet. Add them via add_glossary_term under a UI bounded context so component naming stays consistent with the rest of the domain language.\n"),
	}
}

func renderClaudeMD(project *domain.Project, summary *services.ContextSummary, model []services.ContextWithObjects) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", project.Name)
	if project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", project.Description)
	}
	b.WriteString("## Current context\n\n")
	for _, line := range summary.RenderLines() {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n## Bounded contexts\n\n")
	for _, c := range model {
		fmt.Fprintf(&b, "- **%s**: %d domain object(s)\n", c.Context.Name, len(c.Objects))
	}
	b.WriteString("\n## Tech stack\n\n")
	for _, tag := range techStackOrDefault(project) {
		fmt.Fprintf(&b, "- %s\n", tag)
	}
	b.WriteString("\nThis file is regenerated by codegen_agents; hand edits are overwritten on the next run. Put durable notes into a spec, decision, or memory entry instead.\n")
	return []byte(b.String())
}

func (g *Generator) renderMCPConfig() []byte {
	cfg := map[string]any{
		"mcpServers": map[string]any{
			g.serverName: map[string]any{
				"command": g.mcpCommand,
				"args":    []string{},
			},
		},
	}
	b, _ := json.MarshalIndent(cfg, "", "  ")
	return append(b, '\n')
}

func renderStackJSON(project *domain.Project) []byte {
	cfg := map[string]any{
		"tech_stack": techStackOrDefault(project),
	}
	b, _ := json.MarshalIndent(cfg, "", "  ")
	return append(b, '\n')
}

func renderConstitution(project *domain.Project, glossary []*domain.GlossaryTerm, decisions []*domain.Decision) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Constitution\n\n", project.Name)
	b.WriteString("## Ubiquitous language\n\n")
	terms := make([]*domain.GlossaryTerm, len(glossary))
	copy(terms, glossary)
	sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })
	for _, t := range terms {
		fmt.Fprintf(&b, "- **%s**: %s\n", t.Term, t.Definition)
	}
	b.WriteString("\n## Standing decisions\n\n")
	for _, d := range decisions {
		if d.Status != domain.DecisionAccepted {
			continue
		}
		fmt.Fprintf(&b, "- %s — %s\n", d.Title, d.Rationale)
	}
	b.WriteString("\n## Guardrails\n\n- A task may not be moved into a column that would exceed its WIP limit; force does not override this.\n- A spec needs at least one acceptance criterion before it can move to in_review.\n- Archiving a spec with non-done dependent tasks is rejected.\n")
	return []byte(b.String())
}

func slug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
