package content

import "github.com/cwaproj/cwa/internal/mcp"

// --- cwa://entity-model resource ---

// EntityModelResource exposes cwa's entity model as a reference resource.
type EntityModelResource struct{}

func (r *EntityModelResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "cwa://entity-model",
		Name:        "cwa Entity Model",
		Description: "Reference of every entity kind, its fields, and how it is keyed in the primary store and projected into the graph",
		MimeType:    "text/markdown",
	}
}

func (r *EntityModelResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: "cwa://entity-model", MimeType: "text/markdown", Text: entityModelContent},
		},
	}, nil
}

// --- cwa://guardrails resource ---

// GuardrailsResource exposes the guardrail rules as a reference resource.
type GuardrailsResource struct{}

func (r *GuardrailsResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "cwa://guardrails",
		Name:        "cwa Guardrails",
		Description: "Reference of all guardrail checks, their severity levels, and when they run",
		MimeType:    "text/markdown",
	}
}

func (r *GuardrailsResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: "cwa://guardrails", MimeType: "text/markdown", Text: guardrailsContent},
		},
	}, nil
}

// --- cwa://tool-reference resource ---

// ToolReferenceResource exposes a quick-reference card for the tool catalogue.
type ToolReferenceResource struct{}

func (r *ToolReferenceResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "cwa://tool-reference",
		Name:        "cwa Tool Reference",
		Description: "Quick-reference card for every registered tool, its parameters, and usage notes",
		MimeType:    "text/markdown",
	}
}

func (r *ToolReferenceResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: "cwa://tool-reference", MimeType: "text/markdown", Text: toolReferenceContent},
		},
	}, nil
}

// --- Static content ---

const entityModelContent = `# cwa Entity Model

## Project
Root of a namespace. Holds name, description, and detected tech stack.

## Spec
A specification document under review.
- Fields: title, description, status (draft/active/in_review/accepted/completed/archived), priority, acceptance_criteria, dependencies, context_id
- Projected into the graph as a node with depends_on edges to its dependencies.

## BoundedContext / DomainObject
A BoundedContext groups DomainObjects (entity/value_object/aggregate/service/event) under a ubiquitous language, with upstream/downstream edges to other contexts.

## Task
A kanban card: title, description, status (one of the five kanban columns), priority, spec_id, position.
Position is a sparse integer (gaps of 1000) so reordering within a column rarely requires renumbering siblings.

## Decision
An architectural decision record: title, rationale, alternatives, status (proposed/accepted/superseded/deprecated), and an optional supersedes link to an earlier decision.

## GlossaryTerm
A ubiquitous-language definition, optionally scoped to a BoundedContext, with aliases for synonym lookup.

## Memory
An unstructured preference/decision/fact/pattern with a decaying confidence score in [0,1] and an optional embedding for semantic search.

## Observation
A structured development event (bugfix/feature/refactor/discovery/decision/change/insight) with a narrative, supporting facts, and the files it touched.

## Summary
A compressed digest produced by folding many Observations from a time range into one entry.

## Keying and projection

Every entity lives in the primary store under ` + "`cwa:<project_id>:<kind>:<id>`" + `, with a ` + "`cwa:<project_id>:<kind>:all`" + ` sorted set giving creation-order iteration and a ` + "`cwa:<project_id>:tasks:by_status:<status>`" + ` sorted set giving per-column position order. Every write bumps a per-entity version used for optimistic concurrency, and publishes an event on ` + "`cwa:<project_id>:events`" + `.

The graph projector mirrors the same entities into Neo4j via MERGE, replacing each node's outgoing edge set in full on every sync rather than diffing individual edges.
`

const guardrailsContent = `# cwa Guardrails Reference

## Overview

Guardrails are composable checks that run automatically before a kanban move
or spec status change is committed. Each guard returns a result with one of
four severity levels.

## Severity Levels

| Level | Meaning | Override |
|-------|---------|---------|
| HARD_BLOCK | Cannot proceed | Must fix the issue |
| SOFT_BLOCK | Should not proceed | Use force=true |
| WARNING | Advisory | Recommended action |
| SUGGESTION | Informational | No action needed |

## Guard Sets

### Kanban guards (run on update_task_status)

| Guard | Severity | Checks |
|-------|----------|--------|
| wip_limit | HARD_BLOCK | Moving into the target column would exceed its configured WIP limit |

### Spec guards (run on update_spec_status)

| Guard | Severity | Checks |
|-------|----------|--------|
| acceptance_criteria_required | SOFT_BLOCK | Spec has at least one acceptance criterion before moving to in_review |

## Guard Context

Guards receive a populated GuardContext: the task or spec under evaluation,
the from/to state, and whatever column/spec counters the caller already
loaded from the store, so guards stay pure and never issue their own queries.
`

const toolReferenceContent = `# cwa Tool Quick Reference

## Project & context

- get_project_info — name, description, tech stack
- get_context_summary — condensed snapshot of active specs, in-flight tasks, and recent decisions
- get_tech_stack — detected/declared technology list
- cache_status — pending embedding backlog and graph dirty-entity count

## Specs

- get_spec, list_specs, create_spec, update_spec_status, add_acceptance_criteria, validate_spec

## Tasks

- get_current_task, list_tasks, create_task, update_task_status, generate_tasks, get_wip_status, set_wip_limit

## Domain model

- create_context, create_domain_object, get_domain_model, get_context_map, get_glossary, add_glossary_term

## Decisions

- add_decision, list_decisions

## Memory

- memory_add, observe, memory_semantic_search, memory_search_all, memory_timeline, memory_get, hybrid_search, get_next_steps, search_memory, summarize, decay, compact

## Graph

- graph_query, graph_impact, graph_neighborhood, graph_sync, graph_hyperedges

## Codegen

- codegen_agents, codegen_dry_run, codegen_optimize
`
