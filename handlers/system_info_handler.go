package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"eclipse-warden/bot"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// dataSize sums the size of the files in the data directory.
func dataSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	// Get CPU info
	cpuCount, _ := cpu.Counts(true)
	var cpuUsage float64
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}

	// Get memory info
	var memText string
	if vm, err := mem.VirtualMemory(); err == nil {
		memText = fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024)
	}

	// Get host info
	var osText, kernel string
	if hostInfo, err := host.Info(); err == nil {
		osText = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		kernel = hostInfo.KernelVersion
	}

	cfg := b.GetConfig()
	st := b.GetEngine().Stats(0)
	var timed int
	for _, n := range st.ActiveTimed {
		timed += n
	}

	embed := &discordgo.MessageEmbed{
		Title: "System info",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: orDash(osText), Inline: true},
			{Name: "🔧 Kernel", Value: orDash(kernel), Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", cpuUsage), Inline: true},
			{Name: "🧠 Memory", Value: orDash(memText), Inline: true},
			{Name: "🗃️ Store", Value: fmt.Sprintf("%s, %d KB", cfg.StoreBackend, dataSize(cfg.DataDir)/1024), Inline: true},
			{Name: "⏱️ WebSocket latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "🕒 Uptime", Value: utils.FormatDuration(time.Since(b.StartedAt).Truncate(time.Second)), Inline: true},
			{Name: "📁 Last case", Value: fmt.Sprintf("#%d", st.CaseCounter), Inline: true},
			{Name: "⏳ Timed actions", Value: fmt.Sprintf("%d", timed), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("System monitor · today %s", time.Now().Format("15:04")),
		},
	}

	utils.SendEmbedResponse(s, i, true, embed)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
