package bot

import (
	"context"
	"testing"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/utils/clock/clocktest"
	"eclipse-warden/utils/database/modstore"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type stubBot struct {
	cfg *model.Config
	eng *moderation.Engine
}

func (s *stubBot) GetConfig() *model.Config { return s.cfg }
func (s *stubBot) GetSession() *discordgo.Session { return nil }
func (s *stubBot) GetEngine() *moderation.Engine { return s.eng }

func TestSchedulerStartStop(t *testing.T) {
	eng, err := moderation.New(moderation.Options{
		Store:  modstore.NewMemoryStore(),
		Config: model.DefaultModerationConfig(),
		Clock:  clocktest.NewFakeClock(time.Now()),
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	defer eng.Close()

	cfg := &model.Config{}
	cfg.ReportInterval = 0
	s := NewScheduler(&stubBot{cfg: cfg, eng: eng})
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
