package directory

import (
	"fmt"

	"github.com/sim-arch/dirsim/datarecording"
)

// Stats accumulates the counters named in §6's statistics table. Field
// names mirror the exported statistic names with Go capitalization.
type Stats struct {
	Recv        map[Command]uint64
	UncacheRecv map[Command]uint64
	Sent        map[Command]uint64

	GetRequestLatency         float64
	GetRequestCount           uint64
	ReplacementRequestLatency float64
	ReplacementRequestCount   uint64

	DirectoryCacheHits uint64
	MSHRHits           uint64

	EventSentReadDirEntry  uint64
	EventSentWriteDirEntry uint64

	// occupancyToDuration buckets wall time by the MSHR occupancy level that
	// held throughout it, the same level-to-duration technique the pack's
	// buffer analyzers use so a time-weighted average can be recovered
	// without needing a sample on every single cycle.
	occupancyToDuration     map[int]VTime
	lastOccupancy           int
	lastOccupancySampleTime VTime

	tableCreated bool
}

// NewStats creates a zeroed Stats.
func NewStats() *Stats {
	return &Stats{
		Recv:                make(map[Command]uint64),
		UncacheRecv:         make(map[Command]uint64),
		Sent:                make(map[Command]uint64),
		occupancyToDuration: make(map[int]VTime),
	}
}

func (s *Stats) recordRecv(cmd Command) {
	s.Recv[cmd]++
}

func (s *Stats) recordUncacheRecv(cmd Command) {
	s.UncacheRecv[cmd]++
}

func (s *Stats) recordSent(cmd Command) {
	s.Sent[cmd]++
}

func (s *Stats) recordGetRequestLatency(latency VTime) {
	s.GetRequestLatency += float64(latency)
	s.GetRequestCount++
}

func (s *Stats) recordReplacementLatency(latency VTime) {
	s.ReplacementRequestLatency += float64(latency)
	s.ReplacementRequestCount++
}

// recordOccupancySample credits the time elapsed since the previous sample
// to whatever occupancy level held throughout it, then starts a new
// interval at occupancy.
func (s *Stats) recordOccupancySample(now VTime, occupancy int) {
	s.occupancyToDuration[s.lastOccupancy] += now - s.lastOccupancySampleTime
	s.lastOccupancy = occupancy
	s.lastOccupancySampleTime = now
}

// backfillMSHROccupancy accounts for the cycles the clock was off, per
// §4.1 step 6: the MSHR's contents cannot change while the clock is off, so
// the whole idle span is credited to the occupancy level that was already
// in place when the clock stopped ticking.
func (s *Stats) backfillMSHROccupancy(now VTime, occupancy int) {
	s.recordOccupancySample(now, occupancy)
}

// averageMSHROccupancy returns the time-weighted mean MSHR occupancy across
// every interval sampled so far, closing out the current interval at now
// first so the most recent level isn't dropped from the average.
func (s *Stats) averageMSHROccupancy(now VTime) float64 {
	s.recordOccupancySample(now, s.lastOccupancy)

	sumLevel := 0.0
	sumDuration := 0.0

	for level, duration := range s.occupancyToDuration {
		sumLevel += float64(level) * float64(duration)
		sumDuration += float64(duration)
	}

	if sumDuration == 0 {
		return 0
	}

	return sumLevel / sumDuration
}

// statRow is the flat struct datarecording persists, one row per flush.
type statRow struct {
	Command string
	Recv    uint64
	Sent    uint64
}

// occupancyRow is the flat struct datarecording persists for the
// time-weighted MSHR occupancy average.
type occupancyRow struct {
	AverageMSHROccupancy float64
}

// Flush writes every per-command counter as a row into rec under table
// "<compName>_directory_stats", and the time-weighted MSHR occupancy
// average (closed out as of now) as a single row under
// "<compName>_directory_occupancy".
func (s *Stats) Flush(rec datarecording.DataRecorder, compName string, now VTime) {
	cmds := make(map[Command]bool)
	for c := range s.Recv {
		cmds[c] = true
	}
	for c := range s.Sent {
		cmds[c] = true
	}

	tableName := fmt.Sprintf("%s_directory_stats", compName)
	occupancyTableName := fmt.Sprintf("%s_directory_occupancy", compName)

	if !s.tableCreated {
		rec.CreateTable(tableName, statRow{})
		rec.CreateTable(occupancyTableName, occupancyRow{})
		s.tableCreated = true
	}

	for c := range cmds {
		rec.InsertData(tableName, statRow{
			Command: c.String(),
			Recv:    s.Recv[c],
			Sent:    s.Sent[c],
		})
	}

	rec.InsertData(occupancyTableName, occupancyRow{
		AverageMSHROccupancy: s.averageMSHROccupancy(now),
	})
}
