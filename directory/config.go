package directory

import (
	"log"

	"github.com/sim-arch/dirsim/sim"
)

// Protocol selects which coherence protocol variant governs GetS silent
// upgrades and owner semantics (§6).
type Protocol int

const (
	// MESI enables the Exclusive silent-upgrade optimization.
	MESI Protocol = iota
	// MSI disables it; every GetS miss that later upgrades goes through an
	// explicit invalidation round.
	MSI
)

// Config holds every directory configuration parameter from §6's table.
type Config struct {
	CacheLineSize   uint64
	EntryCacheSize  int
	Protocol        Protocol
	MSHRNumEntries  int // -1 = unlimited
	AccessLatencyCycles uint64
	MSHRLatencyCycles   uint64
	MaxRequestsPerCycle int // 0 = unlimited

	AddrRangeStart uint64
	AddrRangeEnd   uint64
	InterleaveSize uint64
	InterleaveStep uint64

	ClockFreq sim.Freq

	MinPacketSize uint64

	Debug      bool
	DebugLevel int
	Verbose    bool
	DebugAddr  uint64

	// NetMemoryName is read only to validate it is empty; setting it is
	// fatal (§6).
	NetMemoryName string
}

// DefaultConfig returns the parameter defaults from §6's table.
func DefaultConfig() Config {
	return Config{
		CacheLineSize:       64,
		EntryCacheSize:      32768,
		Protocol:            MESI,
		MSHRNumEntries:      -1,
		AccessLatencyCycles: 0,
		MSHRLatencyCycles:   0,
		MaxRequestsPerCycle: 0,
		AddrRangeStart:      0,
		AddrRangeEnd:        ^uint64(0),
		InterleaveSize:      0,
		InterleaveStep:      0,
		ClockFreq:           sim.GHz,
		MinPacketSize:       8,
	}
}

// Validate checks the config against §6/§7's configuration-error rules,
// returning a configError (never panics — construction-time errors are
// surfaced to the caller, not fatal, unlike protocol-runtime errors).
func (c Config) Validate() error {
	if c.NetMemoryName != "" {
		return errInvalidConfig("net_memory_name is not supported")
	}

	if c.MSHRNumEntries == 0 {
		return errInvalidConfig("mshr_num_entries of 0 is invalid, use -1 for unlimited")
	}

	if c.CacheLineSize == 0 {
		return errInvalidConfig("cache_line_size must be nonzero")
	}

	region := Region{
		Start:          Addr(c.AddrRangeStart),
		End:            Addr(c.AddrRangeEnd),
		InterleaveSize: c.InterleaveSize,
		InterleaveStep: c.InterleaveStep,
	}
	if err := region.Validate(c.CacheLineSize); err != nil {
		return err
	}

	return nil
}

// region reconstructs the Region this config describes.
func (c Config) region() Region {
	return Region{
		Start:          Addr(c.AddrRangeStart),
		End:            Addr(c.AddrRangeEnd),
		InterleaveSize: c.InterleaveSize,
		InterleaveStep: c.InterleaveStep,
	}
}

// ConfigBuilder builds a Config with the teacher's fluent-builder idiom,
// starting from DefaultConfig.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder creates a ConfigBuilder seeded with the defaults.
func NewConfigBuilder() ConfigBuilder {
	return ConfigBuilder{cfg: DefaultConfig()}
}

func (b ConfigBuilder) WithCacheLineSize(n uint64) ConfigBuilder {
	b.cfg.CacheLineSize = n
	return b
}

func (b ConfigBuilder) WithEntryCacheSize(n int) ConfigBuilder {
	b.cfg.EntryCacheSize = n
	return b
}

func (b ConfigBuilder) WithProtocol(p Protocol) ConfigBuilder {
	b.cfg.Protocol = p
	return b
}

func (b ConfigBuilder) WithMSHRNumEntries(n int) ConfigBuilder {
	b.cfg.MSHRNumEntries = n
	return b
}

func (b ConfigBuilder) WithAccessLatencyCycles(n uint64) ConfigBuilder {
	b.cfg.AccessLatencyCycles = n
	return b
}

func (b ConfigBuilder) WithMSHRLatencyCycles(n uint64) ConfigBuilder {
	b.cfg.MSHRLatencyCycles = n
	return b
}

func (b ConfigBuilder) WithMaxRequestsPerCycle(n int) ConfigBuilder {
	b.cfg.MaxRequestsPerCycle = n
	return b
}

func (b ConfigBuilder) WithAddrRange(start, end uint64) ConfigBuilder {
	b.cfg.AddrRangeStart = start
	b.cfg.AddrRangeEnd = end
	return b
}

func (b ConfigBuilder) WithInterleave(size, step uint64) ConfigBuilder {
	b.cfg.InterleaveSize = size
	b.cfg.InterleaveStep = step
	return b
}

func (b ConfigBuilder) WithClockFreq(freq sim.Freq) ConfigBuilder {
	b.cfg.ClockFreq = freq
	return b
}

func (b ConfigBuilder) WithMinPacketSize(n uint64) ConfigBuilder {
	b.cfg.MinPacketSize = n
	return b
}

func (b ConfigBuilder) WithDebug(enabled bool, level int) ConfigBuilder {
	b.cfg.Debug = enabled
	b.cfg.DebugLevel = level
	return b
}

func (b ConfigBuilder) WithNetMemoryName(name string) ConfigBuilder {
	b.cfg.NetMemoryName = name
	return b
}

// Build validates and returns the assembled Config, logging and returning
// a non-nil error on any configuration violation (§7).
func (b ConfigBuilder) Build() (Config, error) {
	if err := b.cfg.Validate(); err != nil {
		log.Printf("directory: invalid configuration: %v", err)
		return Config{}, err
	}

	return b.cfg, nil
}
