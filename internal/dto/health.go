package dto

type DependencyStatus struct {
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

type HealthResData struct {
	Status          string             `json:"status"`
	Dependencies    []DependencyStatus `json:"dependencies"`
	StorageProvider string             `json:"storage_provider"`
	IntentProvider  string             `json:"intent_provider"`
	ImageGeneration bool               `json:"image_generation"`
	AsyncQueue      string             `json:"async_queue"`
	Workers         int                `json:"workers_running"`
	PendingTasks    int                `json:"pending_tasks"`
}
