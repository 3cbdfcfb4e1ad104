package binder

import "github.com/chazu/tern/compiler/types"

// Outcome is the result class of overload resolution.
type Outcome uint8

const (
	Resolved Outcome = iota
	NotApplicable
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NotApplicable:
		return "not applicable"
	default:
		return "ambiguous"
	}
}

// Resolution is the outcome of choosing an overload.
type Resolution struct {
	Outcome  Outcome
	Callable types.TypeID   // the winner when Resolved
	Tied     []types.TypeID // the minimum-cost candidates when Ambiguous
}

// conversionCost returns the number of implicit conversions needed to pass
// args to params, or -1 when the callable is not applicable.
func conversionCost(reg *types.Registry, params, args []types.TypeID) int {
	if len(params) != len(args) {
		return -1
	}
	cost := 0
	for i, arg := range args {
		if arg == params[i] {
			continue
		}
		if !reg.ImplicitlyConvertible(arg, params[i]) {
			return -1
		}
		cost++
	}
	return cost
}

// ResolveOverload picks the applicable member of group needing the fewest
// implicit conversions. Candidates are scanned in declaration order, so the
// result depends only on the group and the argument types.
func ResolveOverload(reg *types.Registry, group types.TypeID, args []types.TypeID) Resolution {
	best := -1
	var tied []types.TypeID
	for _, c := range reg.Members(group) {
		cost := conversionCost(reg, reg.Callable(c).Params, args)
		switch {
		case cost < 0:
			continue
		case best < 0 || cost < best:
			best = cost
			tied = []types.TypeID{c}
		case cost == best:
			tied = append(tied, c)
		}
	}

	switch len(tied) {
	case 0:
		return Resolution{Outcome: NotApplicable}
	case 1:
		return Resolution{Outcome: Resolved, Callable: tied[0]}
	default:
		return Resolution{Outcome: Ambiguous, Tied: tied}
	}
}
