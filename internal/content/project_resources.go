package content

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
)

// projectResource is a generic read-through resource backed by the service
// layer: Read has no context parameter per the mcp.Resource interface, so it
// closes over context.Background().
type projectResource struct {
	def mcp.ResourceDefinition
	get func(ctx context.Context) (any, error)
}

func (r *projectResource) Definition() mcp.ResourceDefinition { return r.def }

func (r *projectResource) Read() (*mcp.ResourcesReadResult, error) {
	v, err := r.get(context.Background())
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: r.def.URI, MimeType: "application/json", Text: string(b)},
		},
	}, nil
}

func newProjectResource(uri, name, desc string, get func(ctx context.Context) (any, error)) *projectResource {
	return &projectResource{
		def: mcp.ResourceDefinition{URI: uri, Name: name, Description: desc, MimeType: "application/json"},
		get: get,
	}
}

// RegisterProjectResources adds the project://* live-data resources to reg,
// scoped to one project id.
func RegisterProjectResources(reg *mcp.Registry, svc *services.Services, projectID string) {
	reg.RegisterResource(newProjectResource("project://info", "Project Info", "Project name, description, and declared tech stack",
		func(ctx context.Context) (any, error) { return svc.GetProjectInfo(ctx, projectID) }))

	reg.RegisterResource(newProjectResource("project://current-spec", "Current Spec", "The first active spec, if any",
		func(ctx context.Context) (any, error) {
			specs, err := svc.ListSpecs(ctx)
			if err != nil {
				return nil, err
			}
			for _, sp := range specs {
				if sp.Status == "active" {
					return sp, nil
				}
			}
			return nil, nil
		}))

	reg.RegisterResource(newProjectResource("project://kanban-board", "Kanban Board", "Every task across every column",
		func(ctx context.Context) (any, error) { return svc.ListTasks(ctx) }))

	reg.RegisterResource(newProjectResource("project://domain-model", "Domain Model", "Every bounded context with its member domain objects",
		func(ctx context.Context) (any, error) { return svc.GetDomainModel(ctx) }))

	reg.RegisterResource(newProjectResource("project://decisions", "Decisions", "Every architectural decision in creation order",
		func(ctx context.Context) (any, error) { return svc.ListDecisions(ctx) }))

	reg.RegisterResource(newProjectResource("project://specs", "Specs", "Every spec in creation order",
		func(ctx context.Context) (any, error) { return svc.ListSpecs(ctx) }))

	reg.RegisterResource(newProjectResource("project://tasks", "Tasks", "Every task, column by column in pipeline order",
		func(ctx context.Context) (any, error) { return svc.ListTasks(ctx) }))

	reg.RegisterResource(newProjectResource("project://glossary", "Glossary", "Every ubiquitous-language term",
		func(ctx context.Context) (any, error) { return svc.GetGlossary(ctx) }))

	reg.RegisterResource(newProjectResource("project://wip-status", "WIP Status", "Current card counts against configured WIP limits",
		func(ctx context.Context) (any, error) { return svc.WipStatus(ctx) }))

	reg.RegisterResource(newProjectResource("project://context-map", "Context Map", "Upstream/downstream relationships between bounded contexts",
		func(ctx context.Context) (any, error) { return svc.GetContextMap(ctx) }))

	reg.RegisterResource(newProjectResource("project://tech-stack", "Tech Stack", "Declared tech-stack tags",
		func(ctx context.Context) (any, error) { return svc.GetTechStack(ctx, projectID) }))
}

// RegisterConstitutionResource adds project://constitution, which renders the
// same governance document codegen_agents writes to .cwa/constitution.md.
func RegisterConstitutionResource(reg *mcp.Registry, render func(ctx context.Context) (string, error)) {
	reg.RegisterResource(&constitutionResource{render: render})
}

type constitutionResource struct {
	render func(ctx context.Context) (string, error)
}

func (r *constitutionResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "project://constitution",
		Name:        "Constitution",
		Description: "Ubiquitous language, standing decisions, and guardrails, rendered the same way codegen_agents writes .cwa/constitution.md",
		MimeType:    "text/markdown",
	}
}

func (r *constitutionResource) Read() (*mcp.ResourcesReadResult, error) {
	text, err := r.render(context.Background())
	if err != nil {
		return nil, err
	}
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: "project://constitution", MimeType: "text/markdown", Text: text},
		},
	}, nil
}
