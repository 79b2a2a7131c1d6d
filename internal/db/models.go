package db

type HarvestRun struct {
	ID         string
	Course     string
	EntryUrl   string
	OutputDir  string
	Attempted  int64
	Succeeded  int64
	StartedAt  int64
	FinishedAt int64
}

type LessonOutcome struct {
	RunID    string
	Sequence int64
	Title    string
	Url      string
	Path     string
	Size     int64
	Status   string
	Reason   string
	Error    string
	Skipped  bool
}
