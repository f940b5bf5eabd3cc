package bot

import (
	"log"
	"sync"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/tasks"
)

// BotProvider defines the methods the scheduler needs from the Bot.
type BotProvider interface {
	model.Bot
	GetEngine() *moderation.Engine
}

// Scheduler manages all scheduled tasks.
type Scheduler struct {
	bot     BotProvider
	done    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once
}

// NewScheduler creates a new scheduler.
func NewScheduler(bot BotProvider) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(2)
	go s.startMaintenance()
	go s.startReports()
}

// Stop terminates all scheduled tasks gracefully. It is safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() {
		log.Println("Stopping scheduler...")
		close(s.done)
		s.wg.Wait()
		log.Println("Scheduler stopped.")
	})
}

// startMaintenance fires timed actions whose timers were missed, e.g. after
// the host slept.
func (s *Scheduler) startMaintenance() {
	defer s.wg.Done()
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.bot.GetEngine().Sweep(); n > 0 {
				log.Printf("Maintenance sweep reversed %d overdue timed actions", n)
			}
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) startReports() {
	defer s.wg.Done()
	interval := s.bot.GetConfig().ReportInterval
	if interval <= 0 {
		log.Println("Moderation reports are disabled.")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Println("Posting moderation report...")
			cfg := s.bot.GetConfig()
			tasks.PostModerationReport(s.bot.GetSession(), cfg.LogChannelID, s.bot.GetEngine(), interval)
		case <-s.done:
			return
		}
	}
}
