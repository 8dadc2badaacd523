package mir

// ValueId, InstId and BlockId are dense indices into a Function's per-kind
// arena. Entities reference each other by these small integers rather than
// by pointer, which sidesteps the ownership cycles that would otherwise
// arise (instructions reference values, values reference the instruction
// that defines them, blocks reference other blocks via terminators) and
// makes the whole graph trivially cloneable and diffable.
type ValueId int

type InstId int

type BlockId int

// InvalidID marks an absent reference (e.g. a value with no defining block).
const InvalidID = -1
