package pattern

import "sort"

// singleIncoming returns the single incoming condition id for elementID,
// or "" if there isn't exactly one.
func singleIncoming(ctx CaseExecutionContext) (string, bool) {
	in := ctx.Snapshot.IncomingFlows(ctx.ElementID)
	if len(in) != 1 {
		return "", false
	}
	return in[0].Source, true
}

func outgoingTargets(ctx CaseExecutionContext) []string {
	out := ctx.Snapshot.OutgoingFlows(ctx.ElementID)
	targets := make([]string, 0, len(out))
	for _, f := range out {
		targets = append(targets, f.Target)
	}
	sort.Strings(targets) // canonical, deterministic production order
	return targets
}

func incomingSources(ctx CaseExecutionContext) []string {
	in := ctx.Snapshot.IncomingFlows(ctx.ElementID)
	sources := make([]string, 0, len(in))
	for _, f := range in {
		sources = append(sources, f.Source)
	}
	sort.Strings(sources)
	return sources
}

// allHaveTokens reports whether every condition in ids has at least one
// token in m.
func allHaveTokens(m Marking, ids []string) bool {
	for _, id := range ids {
		if m.TokensAt(id) < 1 {
			return false
		}
	}
	return true
}

func anyHasToken(m Marking, ids []string) (string, bool) {
	for _, id := range ids {
		if m.TokensAt(id) >= 1 {
			return id, true
		}
	}
	return "", false
}

func countWithTokens(m Marking, ids []string) int {
	n := 0
	for _, id := range ids {
		if m.TokensAt(id) >= 1 {
			n++
		}
	}
	return n
}

// evalGuard looks up a flow's predicate reference in ctx.Variables: a
// predicate reference resolves to a bool stored under that key, or is
// treated as always-true when the key is absent (unconditional flow).
func evalGuard(ctx CaseExecutionContext, predicateRef string) bool {
	if predicateRef == "" {
		return true
	}
	v, ok := ctx.Variables[predicateRef]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
