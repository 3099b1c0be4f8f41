// Package journal writes the events of a simulation run to SQLite.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/milk9111/guardpost/ecs"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrClosed = errors.New("journal: closed")

// MemoryPath keeps the journal in memory for the life of the process.
const MemoryPath = "file::memory:?cache=shared"

const batchSize = 500

// Journal buffers world events and writes them in batches.
type Journal struct {
	DB  *gorm.DB
	run Run

	clock   func() (int, float64)
	pending []EventRecord
	closed  bool
	log     zerolog.Logger
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	if path == "" {
		path = MemoryPath
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	log.Info().Str("path", path).Msg("journal: using local SQLite DB")
	return &Journal{DB: db, log: log}, nil
}

// Begin records a new run. Events handled afterwards belong to it. clock
// reports the current tick and simulated time.
func (j *Journal) Begin(scenario string, seed int64, alertMode string, clock func() (int, float64)) error {
	if j.closed {
		return ErrClosed
	}
	j.run = Run{Scenario: scenario, Seed: seed, AlertMode: alertMode, StartedAt: time.Now().UTC()}
	if err := j.DB.Create(&j.run).Error; err != nil {
		return fmt.Errorf("journal: create run: %w", err)
	}
	j.clock = clock
	return nil
}

// RunID is the id of the current run, or 0 before Begin.
func (j *Journal) RunID() uint {
	return j.run.ID
}

// Handle queues one world event. It is meant to be passed to
// ecs.World.Subscribe.
func (j *Journal) Handle(evt ecs.Event) {
	if j.closed || j.run.ID == 0 {
		return
	}
	rec := EventRecord{
		RunID:   j.run.ID,
		Type:    evt.Type,
		Entity:  uint64(evt.Entity),
		Payload: payload(evt.Data),
	}
	if j.clock != nil {
		rec.Tick, rec.Elapsed = j.clock()
	}
	j.pending = append(j.pending, rec)
	if len(j.pending) >= batchSize {
		if err := j.Flush(); err != nil {
			j.log.Error().Err(err).Msg("journal: flush failed")
		}
	}
}

func payload(data any) datatypes.JSON {
	if data == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

// Flush writes queued events.
func (j *Journal) Flush() error {
	if len(j.pending) == 0 {
		return nil
	}
	if err := j.DB.CreateInBatches(&j.pending, batchSize).Error; err != nil {
		return fmt.Errorf("journal: write events: %w", err)
	}
	j.pending = j.pending[:0]
	return nil
}

// End flushes and stores the final tick count of the run.
func (j *Journal) End(ticks int) error {
	if j.closed {
		return ErrClosed
	}
	if err := j.Flush(); err != nil {
		return err
	}
	if j.run.ID == 0 {
		return nil
	}
	j.run.Ticks = ticks
	if err := j.DB.Model(&j.run).Update("ticks", ticks).Error; err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

// CountByType summarises the events stored for the current run.
func (j *Journal) CountByType() (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := j.DB.Model(&EventRecord{}).
		Select("type, count(*) as count").
		Where("run_id = ?", j.run.ID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("journal: count events: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Type] = r.Count
	}
	return out, nil
}

func (j *Journal) Close() error {
	if j.closed {
		return nil
	}
	flushErr := j.Flush()
	j.closed = true
	sqlDB, err := j.DB.DB()
	if err != nil {
		return errors.Join(flushErr, err)
	}
	return errors.Join(flushErr, sqlDB.Close())
}
