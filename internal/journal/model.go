package journal

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run is one simulation of a scenario.
type Run struct {
	gorm.Model
	Scenario  string    `json:"scenario" gorm:"size:120;index"`
	Seed      int64     `json:"seed"`
	AlertMode string    `json:"alertMode" gorm:"size:16"`
	StartedAt time.Time `json:"startedAt"`
	Ticks     int       `json:"ticks"`
	Events    []EventRecord
}

// EventRecord is one world event captured during a run.
type EventRecord struct {
	ID      uint           `json:"id" gorm:"primarykey"`
	RunID   uint           `json:"runId" gorm:"index:idx_event_run_tick"`
	Tick    int            `json:"tick" gorm:"index:idx_event_run_tick"`
	Elapsed float64        `json:"elapsed"`
	Type    string         `json:"type" gorm:"size:64;index"`
	Entity  uint64         `json:"entity"`
	Payload datatypes.JSON `json:"payload"`
}

// Models lists every table the journal migrates.
var Models = []any{&Run{}, &EventRecord{}}
