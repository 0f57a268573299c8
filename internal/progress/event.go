package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRecordDone Stage = "RECORD_DONE"
	StagePageSleep  Stage = "PAGE_SLEEP"
	StageRunDone    Stage = "RUN_DONE"
	StageRunError   Stage = "RUN_ERROR"
)

// Event captures a single step of crawl progress.
type Event struct {
	// RunID identifies the crawl run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	Stage Stage
	// Total is the record count reported by the API (RUN_START) or the
	// number of records processed (RUN_DONE).
	Total int
	// Page is the zero-based page index for PAGE_SLEEP, which is emitted
	// just before the pause starts.
	Page int
	// RecordID, Title and Date describe the record for RECORD_DONE. Date is
	// the API's announcement date string, "None" when absent.
	RecordID string
	Title    string
	Date     string
	// Bytes is the size of the written record file.
	Bytes int64
	// Dur is the pause length for PAGE_SLEEP and the run time for RUN_DONE
	// and RUN_ERROR.
	Dur time.Duration
	// Note carries error text for RUN_ERROR.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StagePageSleep:
	case StageRecordDone:
		if e.RecordID == "" {
			return errors.New("record done requires record id")
		}
	case StageRunError:
		if e.Note == "" {
			return errors.New("run error requires note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
