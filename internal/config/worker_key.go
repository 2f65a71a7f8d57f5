package config

type WorkerKeyStruct struct {
	PersistPracticeQueue string
	PersistAttemptsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistPracticeQueue: "persist_practice_sessions_queue",
	PersistAttemptsQueue: "persist_attempts_queue",
}
