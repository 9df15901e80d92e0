package config

type WorkerKeyStruct struct {
	PersistAnalyticsQueue string
	ReviewTasksQueue      string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnalyticsQueue: "persist_analytics_queue",
	ReviewTasksQueue:      "review_tasks_queue",
}
