package models

// Entity names the remote collection a change targets.
type Entity string

const (
	EntityProjects    Entity = "projects"
	EntityTasks       Entity = "tasks"
	EntityDailyLogs   Entity = "daily_logs"
	EntityTimeEntries Entity = "time_entries"
	EntityDocuments   Entity = "documents"
)

// RecordEntities are the entities stored as plain records by the record service.
var RecordEntities = []Entity{EntityProjects, EntityTasks, EntityDailyLogs, EntityTimeEntries}

// Record is a remote record as returned by a collaborator.
type Record map[string]any
