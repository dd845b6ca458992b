package tasks

import (
	"runtime/debug"

	"github.com/cloudfinch-harshad/rampart/logger"
)

//Source: https://github.com/mborders/artifex

// Worker attaches to a provided worker pool, and
// looks for jobs on its job channel
type Worker struct {
	workerPool chan chan Job
	jobChannel chan Job
	quit       <-chan struct{}
	started    func(Job)
	done       func(Job)
}

// NewWorker creates a new worker attached to the provided worker pool. It
// stops when quit is closed.
func NewWorker(workerPool chan chan Job, quit <-chan struct{}, started func(Job), done func(Job)) *Worker {
	return &Worker{
		workerPool: workerPool,
		jobChannel: make(chan Job),
		quit:       quit,
		started:    started,
		done:       done,
	}
}

// run is the select loop listening for jobs to execute. It returns once quit
// is closed; a running job is finished first.
func (w *Worker) run() {
	for {
		select {
		case w.workerPool <- w.jobChannel:
		case <-w.quit:
			return
		}
		select {
		case job := <-w.jobChannel:
			w.execute(job)
		case <-w.quit:
			return
		}
	}
}

func (w *Worker) execute(job Job) {
	defer func() { // recovers panic
		if e := recover(); e != nil {
			logger.Log.WithField("job", job.Name).Errorln("Recovered from panic (worker) ", e, "\n", string(debug.Stack()))
		}
		if w.done != nil {
			w.done(job)
		}
	}()
	if w.started != nil {
		w.started(job)
	}
	logger.Log.WithField("job", job.Name).Debugln("job started ", job.ID)
	job.Run()
}
