package tasks

import "time"

//Source: https://github.com/mborders/artifex

// Job represents a runnable process, where Run
// will be executed by a worker via the dispatch queue
type Job struct {
	Queue   string    `json:"queue"`
	ID      string    `json:"id"`
	Added   time.Time `json:"added"`
	Started time.Time `json:"started"`
	Name    string    `json:"name"`
	Run     func()    `json:"-"`
}

// Running reports whether a worker picked the job up.
func (j Job) Running() bool {
	return !j.Started.IsZero()
}
