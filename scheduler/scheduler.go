package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudfinch-harshad/rampart/apiexternal"
	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/cloudfinch-harshad/rampart/tasks"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	JobSessionPurge     = "session_purge"
	JobDeadlineReminder = "deadline_reminder"
	JobDbBackup         = "db_backup"
)

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeExpired(now time.Time) (int, error)
}

type Deps struct {
	Scheduler config.SchedulerConfig
	Database  config.DatabaseConfig
	Sessions  SessionPurger
	Notifier  apiexternal.Notifier

	// Overdue and Backup default to the database package.
	Overdue func(now time.Time) ([]database.Vendor, error)
	Backup  func(backupDir string, maxbackups int) (string, error)
}

// Schedule describes a recurring job.
type Schedule struct {
	Name     string        `json:"name"`
	Queue    string        `json:"queue"`
	Cron     string        `json:"cron,omitempty"`
	Interval time.Duration `json:"interval,omitempty"`
	Next     time.Time     `json:"next"`
	LastRun  time.Time     `json:"lastRun"`
}

type Scheduler struct {
	Data   *tasks.Dispatcher
	Notify *tasks.Dispatcher

	deps Deps
	now  func() time.Time

	mu        sync.Mutex
	schedules map[string]*Schedule
	crons     map[string]*tasks.DispatchCron
}

// InitScheduler starts the Data and Notify queues and registers the recurring
// jobs unless the scheduler is disabled. The queues are started either way so
// ad hoc jobs like invitations can be dispatched.
func InitScheduler(deps Deps) (*Scheduler, error) {
	if deps.Overdue == nil {
		deps.Overdue = database.OverdueVendors
	}
	if deps.Backup == nil {
		deps.Backup = database.Backup
	}
	if deps.Notifier == nil {
		deps.Notifier = apiexternal.LogNotifier{}
	}
	s := &Scheduler{
		Data:      tasks.NewDispatcher("Data", deps.Scheduler.Workers, deps.Scheduler.QueueSize),
		Notify:    tasks.NewDispatcher("Notify", deps.Scheduler.Workers, deps.Scheduler.QueueSize),
		deps:      deps,
		now:       time.Now,
		schedules: make(map[string]*Schedule),
		crons:     make(map[string]*tasks.DispatchCron),
	}
	s.Data.Start()
	s.Notify.Start()

	if deps.Scheduler.Disabled {
		logger.Log.Infoln("Scheduler disabled")
		return s, nil
	}

	if deps.Sessions != nil && deps.Scheduler.PurgeInterval > 0 {
		if _, err := s.Data.DispatchEvery(JobSessionPurge, s.runLogged(JobSessionPurge, s.PurgeSessions), deps.Scheduler.PurgeInterval); err != nil {
			s.Stop()
			return nil, errors.Wrap(err, JobSessionPurge)
		}
		s.schedules[JobSessionPurge] = &Schedule{Name: JobSessionPurge, Queue: s.Data.Name(), Interval: deps.Scheduler.PurgeInterval}
	}
	if deps.Scheduler.ReminderCron != "" {
		if err := s.addCron(s.Notify, JobDeadlineReminder, deps.Scheduler.ReminderCron, func() error {
			_, err := s.RemindDeadlines(context.Background())
			return err
		}); err != nil {
			s.Stop()
			return nil, err
		}
	}
	if deps.Scheduler.BackupCron != "" {
		if err := s.addCron(s.Data, JobDbBackup, deps.Scheduler.BackupCron, func() error {
			_, err := s.BackupDatabase()
			return err
		}); err != nil {
			s.Stop()
			return nil, err
		}
	}
	logger.Log.WithField("jobs", len(s.schedules)).Infoln("Scheduler started")
	return s, nil
}

func (s *Scheduler) addCron(d *tasks.Dispatcher, name string, cronStr string, fn func() error) error {
	c, err := d.DispatchCron(name, s.runLogged(name, fn), cronStr)
	if err != nil {
		return errors.Wrap(err, name)
	}
	s.mu.Lock()
	s.crons[name] = c
	s.schedules[name] = &Schedule{Name: name, Queue: d.Name(), Cron: cronStr}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) runLogged(name string, fn func() error) func() {
	return func() {
		started := s.now()
		s.mu.Lock()
		if sc, ok := s.schedules[name]; ok {
			sc.LastRun = started
		}
		s.mu.Unlock()
		if err := fn(); err != nil {
			logger.Log.WithField("job", name).Errorln(err)
			return
		}
		logger.Log.WithFields(logrus.Fields{"job": name, "duration": time.Since(started)}).Debugln("job finished")
	}
}

// PurgeSessions removes expired sessions from the store.
func (s *Scheduler) PurgeSessions() error {
	if s.deps.Sessions == nil {
		return nil
	}
	removed, err := s.deps.Sessions.PurgeExpired(s.now())
	if err != nil {
		return errors.Wrap(err, "purge sessions")
	}
	if removed > 0 {
		logger.Log.WithField("removed", removed).Infoln("Expired sessions purged")
	}
	return nil
}

// ReminderMessage is the notification text sent for an overdue vendor.
func ReminderMessage(v database.Vendor) string {
	return fmt.Sprintf("%s (%s) has not completed the BRSR questionnaire for FY %s. Deadline was %s, status %s.",
		v.VendorName, v.VendorEmail, v.Fy, v.DeadlineDate.UTC().Format(database.DateFormat), v.CompletionStatus)
}

// RemindDeadlines sends one notification per overdue vendor and returns the
// number of notifications sent. A failed notification does not stop the run.
func (s *Scheduler) RemindDeadlines(ctx context.Context) (int, error) {
	vendors, err := s.deps.Overdue(s.now())
	if err != nil {
		return 0, errors.Wrap(err, "overdue vendors")
	}
	sent := 0
	var firsterr error
	for idx := range vendors {
		if err := s.deps.Notifier.SendMessage(ctx, ReminderMessage(vendors[idx]), "BRSR deadline reminder"); err != nil {
			logger.Log.WithField("vendor", vendors[idx].ID).Warnln("Reminder not sent: ", err)
			if firsterr == nil {
				firsterr = err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		sent++
	}
	if firsterr != nil {
		return sent, errors.Wrap(firsterr, "deadline reminder")
	}
	return sent, nil
}

// BackupDatabase writes a backup and applies the retention limit.
func (s *Scheduler) BackupDatabase() (string, error) {
	name, err := s.deps.Backup(s.deps.Database.BackupDir, s.deps.Database.MaxBackups)
	if err != nil {
		return "", errors.Wrap(err, "backup")
	}
	logger.Log.WithField("file", name).Infoln("Database backup written")
	return name, nil
}

// Schedules returns the registered recurring jobs ordered by name.
func (s *Scheduler) Schedules() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, 0, len(s.schedules))
	for name, sc := range s.schedules {
		entry := *sc
		if c, ok := s.crons[name]; ok {
			entry.Next = c.Next()
		} else if entry.Interval > 0 && !entry.LastRun.IsZero() {
			entry.Next = entry.LastRun.Add(entry.Interval)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Jobs returns the queued and running jobs of both queues.
func (s *Scheduler) Jobs() []tasks.Job {
	jobs := append(s.Data.Queue(), s.Notify.Queue()...)
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Added.Before(jobs[j].Added) })
	return jobs
}

// Stop ends all recurring jobs and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.Data.Stop()
	s.Notify.Stop()
	logger.Log.Debugln("Scheduler stopped")
}
