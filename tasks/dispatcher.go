package tasks

import (
	"sort"
	"sync"
	"time"

	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

//Source: https://github.com/mborders/artifex

var ErrNotActive = errors.New("dispatcher is not active")

// Dispatcher maintains a pool for available workers
// and a job queue that workers will process
type Dispatcher struct {
	maxWorkers int
	maxQueue   int
	tickers    []*DispatchTicker
	crons      []*DispatchCron
	workerPool chan chan Job
	jobQueue   chan Job

	mu     sync.Mutex
	wg     sync.WaitGroup
	quit   chan struct{}
	active bool
	name   string
	queue  map[string]Job
}

// NewDispatcher creates a new dispatcher with the given
// number of workers and buffers the job queue based on maxQueue.
func NewDispatcher(name string, maxWorkers int, maxQueue int) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxQueue < 1 {
		maxQueue = 1
	}
	return &Dispatcher{
		name:       name,
		maxWorkers: maxWorkers,
		maxQueue:   maxQueue,
	}
}

func (d *Dispatcher) Name() string {
	return d.name
}

// Start creates and starts workers, adding them to the worker pool.
// Then, it starts a select loop to wait for job to be dispatched
// to available workers
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return
	}
	d.tickers = nil
	d.crons = nil
	d.workerPool = make(chan chan Job, d.maxWorkers)
	d.jobQueue = make(chan Job, d.maxQueue)
	d.queue = make(map[string]Job, d.maxQueue)
	d.quit = make(chan struct{})

	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(d.workerPool, d.quit, d.markStarted, d.remove)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			worker.run()
		}()
	}

	d.active = true

	d.wg.Add(1)
	go func(quit chan struct{}) {
		defer d.wg.Done()
		for {
			select {
			case job := <-d.jobQueue:
				select {
				case jobChannel := <-d.workerPool:
					select {
					case jobChannel <- job:
					case <-quit:
						return
					}
				case <-quit:
					return
				}
			case <-quit:
				return
			}
		}
	}(d.quit)
}

// Stop ends execution for all workers, tickers and crons and waits until
// running jobs are finished. Jobs still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	crons := d.crons
	d.crons = nil
	d.tickers = nil
	close(d.quit)
	d.mu.Unlock()

	for i := range crons {
		crons[i].Stop()
	}
	d.wg.Wait()

	d.mu.Lock()
	d.queue = make(map[string]Job)
	d.mu.Unlock()
}

func (d *Dispatcher) newJob(name string, run func()) Job {
	return Job{Queue: d.name, ID: uuid.New().String(), Added: time.Now(), Name: name, Run: run}
}

// enqueue blocks while the queue is full. It gives up when the dispatcher
// stops.
func (d *Dispatcher) enqueue(job Job, quit <-chan struct{}) error {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return ErrNotActive
	}
	d.queue[job.ID] = job
	d.mu.Unlock()

	select {
	case d.jobQueue <- job:
		return nil
	case <-quit:
		d.remove(job)
		return ErrNotActive
	}
}

// schedule queues a job for a timer, ticker or cron trigger. A job that can no
// longer be queued is logged and dropped.
func (d *Dispatcher) schedule(name string, run func(), quit <-chan struct{}) {
	if err := d.enqueue(d.newJob(name, run), quit); err != nil {
		logger.Log.WithField("queue", d.name).Debugln("Job ", name, " not queued: ", err)
	}
}

func (d *Dispatcher) markStarted(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if j, ok := d.queue[job.ID]; ok {
		j.Started = time.Now()
		d.queue[job.ID] = j
	}
}

func (d *Dispatcher) remove(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queue, job.ID)
}

func (d *Dispatcher) quitChan() (<-chan struct{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit, d.active
}

// track registers a goroutine with the stop wait group while the dispatcher
// is active.
func (d *Dispatcher) track() (<-chan struct{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil, false
	}
	d.wg.Add(1)
	return d.quit, true
}

// Queue returns the queued and running jobs ordered by the time they were
// added.
func (d *Dispatcher) Queue() []Job {
	d.mu.Lock()
	jobs := make([]Job, 0, len(d.queue))
	for _, j := range d.queue {
		jobs = append(jobs, j)
	}
	d.mu.Unlock()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Added.Before(jobs[j].Added)
	})
	return jobs
}

// Dispatch pushes the given job into the job queue.
// The first available worker will perform the job
func (d *Dispatcher) Dispatch(name string, run func()) (Job, error) {
	quit, active := d.quitChan()
	if !active {
		return Job{}, ErrNotActive
	}
	job := d.newJob(name, run)
	return job, d.enqueue(job, quit)
}

// DispatchIn pushes the given job into the job queue
// after the given duration has elapsed
func (d *Dispatcher) DispatchIn(name string, run func(), duration time.Duration) error {
	quit, active := d.track()
	if !active {
		return ErrNotActive
	}
	go func() {
		defer d.wg.Done()
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			d.schedule(name, run, quit)
		case <-quit:
		}
	}()
	return nil
}

// DispatchEvery pushes the given job into the job queue
// continuously at the given interval
func (d *Dispatcher) DispatchEvery(name string, run func(), interval time.Duration) (*DispatchTicker, error) {
	if interval <= 0 {
		return nil, errors.New("invalid interval")
	}
	quit, active := d.track()
	if !active {
		return nil, ErrNotActive
	}

	t := time.NewTicker(interval)
	dt := &DispatchTicker{quit: make(chan struct{})}
	d.mu.Lock()
	d.tickers = append(d.tickers, dt)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-t.C:
				d.schedule(name, run, quit)
			case <-dt.quit:
				return
			case <-quit:
				return
			}
		}
	}()

	return dt, nil
}

// DispatchCron pushes the given job into the job queue
// each time the cron definition is met
func (d *Dispatcher) DispatchCron(name string, run func(), cronStr string) (*DispatchCron, error) {
	quit, active := d.quitChan()
	if !active {
		return nil, ErrNotActive
	}

	dc := &DispatchCron{cron: cron.New(cron.WithSeconds())}
	_, err := dc.cron.AddFunc(cronStr, func() {
		d.schedule(name, run, quit)
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid cron definition")
	}

	d.mu.Lock()
	d.crons = append(d.crons, dc)
	d.mu.Unlock()
	dc.cron.Start()
	return dc, nil
}

// DispatchTicker represents a dispatched job ticker
// that executes on a given interval. This provides
// a means for stopping the execution cycle from continuing.
type DispatchTicker struct {
	quit chan struct{}
	once sync.Once
}

// Stop ends the execution cycle for the given ticker.
func (dt *DispatchTicker) Stop() {
	dt.once.Do(func() {
		close(dt.quit)
	})
}

// DispatchCron represents a dispatched cron job
// that executes using cron expression formats.
type DispatchCron struct {
	cron *cron.Cron
	once sync.Once
}

// Stop ends the execution cycle for the given cron and waits for a running
// trigger to return.
func (c *DispatchCron) Stop() {
	c.once.Do(func() {
		<-c.cron.Stop().Done()
	})
}

// Next returns the next activation time.
func (c *DispatchCron) Next() time.Time {
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
