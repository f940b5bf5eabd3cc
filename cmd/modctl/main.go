package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"
	"eclipse-warden/utils/database/modstore"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "modctl",
		Usage: "inspect, export and migrate the moderation store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				EnvVars: []string{"DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "backend",
				Value:   modstore.BackendSQLite,
				Usage:   "sqlite, json or memory",
				EnvVars: []string{"STORE_BACKEND"},
			},
		},
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:      "show",
			Usage:     "print the moderation record of a user",
			ArgsUsage: "<user-id>",
			Action:    runShow,
		},
		&cli.Command{
			Name:  "cases",
			Usage: "list audit trail entries, newest first",
			Flags: []cli.Flag{
				&cli.Int64Flag{Name: "id"},
				&cli.StringFlag{Name: "target"},
				&cli.StringFlag{Name: "actor"},
				&cli.StringFlag{Name: "since", Usage: "only cases newer than this, e.g. 7d"},
				&cli.IntFlag{Name: "limit", Value: 20},
			},
			Action: runCases,
		},
		&cli.Command{
			Name:  "export",
			Usage: "dump the whole store as JSON",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "file to write, stdout if empty"},
			},
			Action: runExport,
		},
		&cli.Command{
			Name:  "migrate",
			Usage: "copy the store from one backend into an empty one",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Required: true},
				&cli.StringFlag{Name: "to", Required: true},
			},
			Action: runMigrate,
		},
	}
	app.RunAndExitOnError()
}

func openStore(cctx *cli.Context) (modstore.Store, error) {
	return modstore.Open(cctx.String("backend"), cctx.String("data-dir"))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runShow(cctx *cli.Context) error {
	userID := cctx.Args().First()
	if userID == "" {
		return fmt.Errorf("need to provide a user id as an argument")
	}
	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Load(cctx.Context)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, recordFromSnapshot(snap, userID, time.Now()))
}

// recordFromSnapshot builds the same view the engine reports, straight from
// persisted state.
func recordFromSnapshot(snap *model.Snapshot, userID string, now time.Time) model.ModerationRecord {
	rec := model.ModerationRecord{
		UserID:       userID,
		Infractions:  snap.Warnings[userID],
		State:        model.StateNone,
		TimedActions: []model.TimedAction{},
	}
	if rec.Infractions == nil {
		rec.Infractions = []model.InfractionRecord{}
	}
	for _, id := range snap.PermanentMutes {
		if id == userID {
			rec.PermanentMute = true
			rec.State = model.StateMuted
		}
	}
	var muteExpiry, timeoutExpiry *time.Time
	for _, a := range snap.ScheduledActions {
		if a.SubjectID != userID || !a.ExpiresAt.After(now) {
			continue
		}
		rec.TimedActions = append(rec.TimedActions, a)
		exp := a.ExpiresAt
		switch a.Kind {
		case model.KindMute, model.KindMuteActor:
			if muteExpiry == nil || exp.After(*muteExpiry) {
				muteExpiry = &exp
			}
		case model.KindTimeout:
			timeoutExpiry = &exp
		}
	}
	switch {
	case rec.PermanentMute:
	case muteExpiry != nil:
		rec.State = model.StateMuted
		rec.Expiry = muteExpiry
	case timeoutExpiry != nil:
		rec.State = model.StateTimedOut
		rec.Expiry = timeoutExpiry
	}
	return rec
}

func runCases(cctx *cli.Context) error {
	filter := model.CaseFilter{
		CaseID:   cctx.Int64("id"),
		TargetID: cctx.String("target"),
		ActorID:  cctx.String("actor"),
		Limit:    cctx.Int("limit"),
	}
	if s := cctx.String("since"); s != "" {
		d, err := utils.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = time.Now().Add(-d)
	}

	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	cases, err := store.Cases(cctx.Context, filter)
	if err != nil {
		return err
	}
	for _, c := range cases {
		line := fmt.Sprintf("#%d\t%s\t%s\ttarget=%s\tactor=%s\t%s",
			c.CaseID, c.CreatedAt.Format(time.RFC3339), c.Action, c.TargetID, c.ActorID, c.Reason)
		if c.Duration > 0 {
			line += "\t" + utils.FormatDuration(c.Duration)
		}
		fmt.Println(line)
	}
	return nil
}

// exportDocument is the JSON layout of `modctl export`.
type exportDocument struct {
	*model.Snapshot
	Cases []model.CaseEntry `json:"cases"`
}

func runExport(cctx *cli.Context) error {
	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, cases, err := modstore.Export(cctx.Context, store)
	if err != nil {
		return err
	}
	w := io.Writer(os.Stdout)
	if path := cctx.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return printJSON(w, exportDocument{Snapshot: snap, Cases: cases})
}

func runMigrate(cctx *cli.Context) error {
	from, to := cctx.String("from"), cctx.String("to")
	if from == to {
		return fmt.Errorf("source and destination backends are both %s", from)
	}
	dir := cctx.String("data-dir")
	return migrate(cctx.Context, from, to, dir)
}

func migrate(ctx context.Context, from, to, dir string) error {
	src, err := modstore.Open(from, dir)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", from, err)
	}
	defer src.Close()
	dst, err := modstore.Open(to, dir)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", to, err)
	}
	defer dst.Close()

	existing, err := dst.Load(ctx)
	if err != nil {
		return err
	}
	if existing.CaseCounter != 0 || len(existing.Warnings) != 0 {
		return fmt.Errorf("destination %s store is not empty", to)
	}

	snap, cases, err := modstore.Export(ctx, src)
	if err != nil {
		return err
	}
	if err := modstore.Import(ctx, dst, snap, cases); err != nil {
		return err
	}
	fmt.Printf("migrated %d users, %d timed actions, %d cases from %s to %s\n",
		len(snap.Warnings), len(snap.ScheduledActions), len(cases), from, to)
	return nil
}
