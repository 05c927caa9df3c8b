package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	PersistMarksQueue   string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	PersistMarksQueue:   "persist_marks_queue",
}
