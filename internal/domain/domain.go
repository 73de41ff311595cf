// Package domain defines the entity model shared by the primary store, the
// graph projector, the vector indexer, and the protocol dispatcher.
package domain

import "time"

// Spec statuses.
const (
	SpecDraft    = "draft"
	SpecActive   = "active"
	SpecInReview = "in_review"
	SpecAccepted = "accepted"
	SpecComplete = "completed"
	SpecArchived = "archived"
)

// Priorities shared by Spec and Task.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Kanban column names, in pipeline order.
const (
	ColumnBacklog    = "backlog"
	ColumnTodo       = "todo"
	ColumnInProgress = "in_progress"
	ColumnReview     = "review"
	ColumnDone       = "done"
)

// Decision statuses.
const (
	DecisionProposed   = "proposed"
	DecisionAccepted   = "accepted"
	DecisionSuperseded = "superseded"
	DecisionDeprecated = "deprecated"
)

// Memory kinds.
const (
	MemoryPreference = "preference"
	MemoryDecision   = "decision"
	MemoryFact       = "fact"
	MemoryPattern    = "pattern"
)

// Observation kinds.
const (
	ObsBugfix    = "bugfix"
	ObsFeature   = "feature"
	ObsRefactor  = "refactor"
	ObsDiscovery = "discovery"
	ObsDecision  = "decision"
	ObsChange    = "change"
	ObsInsight   = "insight"
)

// DomainObject kinds.
const (
	KindEntity      = "entity"
	KindValueObject = "value_object"
	KindAggregate   = "aggregate"
	KindService     = "service"
	KindEvent       = "event"
)

// Project is the root of a namespace.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TechStack   []string  `json:"tech_stack"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// Spec is a specification document under review.
type Spec struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Status             string    `json:"status"`
	Priority           string    `json:"priority"`
	AcceptanceCriteria []string  `json:"acceptance_criteria"`
	Dependencies       []string  `json:"dependencies"`
	ContextID          string    `json:"context_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Version            int64     `json:"version"`
}

// BoundedContext groups domain objects under a ubiquitous language.
type BoundedContext struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	UpstreamIDs   []string  `json:"upstream_ids"`
	DownstreamIDs []string  `json:"downstream_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// DomainObject is an entity/value-object/aggregate/service/event within a
// bounded context.
type DomainObject struct {
	ID         string            `json:"id"`
	ContextID  string            `json:"context_id"`
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	Invariants []string          `json:"invariants"`
	Properties map[string]string `json:"properties"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Version    int64             `json:"version"`
}

// Task is a kanban card.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	SpecID      string    `json:"spec_id,omitempty"`
	Position    int64     `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// KanbanConfig holds per-column WIP limits. A zero value means unlimited.
type KanbanConfig struct {
	Limits map[string]int `json:"limits"`
}

// DefaultKanbanConfig returns the out-of-the-box WIP limits.
func DefaultKanbanConfig() KanbanConfig {
	return KanbanConfig{Limits: map[string]int{
		ColumnTodo:       5,
		ColumnInProgress: 1,
		ColumnReview:     2,
	}}
}

// Decision is an architectural decision record. RelatedEntity, when set, is
// a "kind:id" pair (e.g. "spec:S1") the graph projector links with a
// RELATES_TO edge alongside the decision↔decision edge Supersedes implies.
type Decision struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Rationale     string    `json:"rationale"`
	Alternatives  []string  `json:"alternatives"`
	Status        string    `json:"status"`
	Supersedes    string    `json:"supersedes,omitempty"`
	RelatedEntity string    `json:"related_entity,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// GlossaryTerm is a ubiquitous-language definition.
type GlossaryTerm struct {
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	Aliases    []string  `json:"aliases"`
	ContextID  string    `json:"context_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// Memory is an unstructured nugget with decaying confidence.
type Memory struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Content     string    `json:"content"`
	Confidence  float64   `json:"confidence"`
	EmbeddingID string    `json:"embedding_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// Observation is a structured development event record.
type Observation struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Narrative     string    `json:"narrative"`
	Facts         []string  `json:"facts"`
	FilesModified []string  `json:"files_modified"`
	FilesRead     []string  `json:"files_read"`
	Confidence    float64   `json:"confidence"`
	EmbeddingID   string    `json:"embedding_id,omitempty"`
	RelatedEntity string    `json:"related_entity,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// Summary is a compressed digest over N observations.
type Summary struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	RangeStart        time.Time `json:"range_start"`
	RangeEnd          time.Time `json:"range_end"`
	ObservationsCount int       `json:"observations_count"`
	CreatedAt         time.Time `json:"created_at"`
	Version           int64     `json:"version"`
}

// SyncState tracks graph-projection freshness for one primary-store entity.
type SyncState struct {
	EntityKind   string    `json:"entity_kind"`
	EntityID     string    `json:"entity_id"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	SyncVersion  int64     `json:"sync_version"`
	ContentHash  string    `json:"content_hash"`
	Version      int64     `json:"version"`
}

// Event kinds carried over the primary store's pub/sub channel.
const (
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
	EventTaskMoved     = "task_moved"
	EventSpecUpdated   = "spec_updated"
	EventBoardRefresh  = "board_refresh"
	EventMemoryAdded   = "memory_added"
	EventDecisionAdded = "decision_added"
)

// Event is a typed pub/sub message.
type Event struct {
	Type      string         `json:"type"`
	ProjectID string         `json:"project_id"`
	Payload   map[string]any `json:"payload"`
}
