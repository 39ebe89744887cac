package directory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeRecorder is a minimal datarecording.DataRecorder stand-in that records
// which tables were created and how many rows landed in each, without
// touching SQLite.
type fakeRecorder struct {
	created map[string]bool
	rows    map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{created: make(map[string]bool), rows: make(map[string]int)}
}

func (f *fakeRecorder) CreateTable(tableName string, _ any) {
	f.created[tableName] = true
}

func (f *fakeRecorder) InsertData(tableName string, _ any) {
	f.rows[tableName]++
}

func (f *fakeRecorder) ListTables() []string {
	names := make([]string, 0, len(f.created))
	for n := range f.created {
		names = append(names, n)
	}

	return names
}

func (f *fakeRecorder) Flush() {}

var _ = Describe("Stats", func() {
	It("should count received and sent commands independently", func() {
		s := NewStats()
		s.recordRecv(GetS)
		s.recordRecv(GetS)
		s.recordSent(GetSResp)

		Expect(s.Recv[GetS]).To(Equal(uint64(2)))
		Expect(s.Sent[GetSResp]).To(Equal(uint64(1)))
		Expect(s.Recv[GetX]).To(Equal(uint64(0)))
	})

	It("should accumulate get-request latency and count", func() {
		s := NewStats()
		s.recordGetRequestLatency(VTime(10))
		s.recordGetRequestLatency(VTime(20))

		Expect(s.GetRequestCount).To(Equal(uint64(2)))
		Expect(s.GetRequestLatency).To(Equal(30.0))
	})

	It("should time-weight MSHR occupancy samples rather than average them flatly", func() {
		s := NewStats()
		// A flat average of the two levels sampled (0, 4) would read 2; an
		// even split of time between them would also read 2, so skew the
		// durations to tell the two techniques apart.
		s.recordOccupancySample(VTime(5), 0)
		s.recordOccupancySample(VTime(6), 4)

		avg := s.averageMSHROccupancy(VTime(10))
		// Level 0 holds from 0 to 6, level 4 from 6 to 10:
		// (0*6 + 4*4)/10.
		Expect(avg).To(BeNumerically("~", 16.0/10.0, 1e-9))
	})

	It("should backfill a clock-off span at the occupancy level already in place", func() {
		s := NewStats()
		s.recordOccupancySample(VTime(2), 3)
		// Clock goes off for 8 time units while occupancy stays at 3, then
		// the next sample after turning back on observes occupancy unchanged.
		s.backfillMSHROccupancy(VTime(10), 3)

		avg := s.averageMSHROccupancy(VTime(10))
		// Level 0 holds from 0 to 2 (before the first sample), level 3
		// from 2 to 10: (0*2 + 3*8)/10.
		Expect(avg).To(BeNumerically("~", 2.4, 1e-9))
	})

	It("should create its tables exactly once across multiple flushes", func() {
		s := NewStats()
		s.recordRecv(GetS)
		s.recordSent(GetSResp)

		rec := newFakeRecorder()

		s.Flush(rec, "Directory", VTime(1))
		s.Flush(rec, "Directory", VTime(2))

		Expect(rec.created).To(HaveLen(2))
		Expect(rec.created["Directory_directory_stats"]).To(BeTrue())
		Expect(rec.created["Directory_directory_occupancy"]).To(BeTrue())
		Expect(rec.rows["Directory_directory_stats"]).To(BeNumerically(">", 0))
		Expect(rec.rows["Directory_directory_occupancy"]).To(Equal(2))
	})
})
