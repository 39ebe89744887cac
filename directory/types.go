package directory

import "github.com/sim-arch/dirsim/sim"

// VTime is the simulator's virtual time type, aliased here so the rest of
// the package does not spell out sim.VTimeInSec everywhere.
type VTime = sim.VTimeInSec
