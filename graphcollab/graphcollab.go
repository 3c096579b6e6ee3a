// Package graphcollab is the example SpecificationProvider/GraphCollaborator
// this repository ships, grounded on semantic.WorkflowGraph's
// Cayley-over-BoltDB quad store, narrowed from a schema.org ItemList
// encoding down to the kernel's own Task/Condition/Flow vocabulary:
// tasks and conditions become IRIs typed by kind, flows become a
// "precedes" predicate between them.
package graphcollab

import (
	"context"
	"fmt"
	"strings"

	"github.com/cayleygraph/cayley"
	"github.com/cayleygraph/cayley/graph"
	_ "github.com/cayleygraph/cayley/graph/kv/bolt"
	"github.com/cayleygraph/quad"

	"github.com/chatman-systems/workflowkernel/snapshot"
)

var (
	predType      = quad.IRI("kernel:type")
	predSplit     = quad.IRI("kernel:split")
	predJoin      = quad.IRI("kernel:join")
	predPattern   = quad.IRI("kernel:patternID")
	predPrecedes  = quad.IRI("kernel:precedes")
	predRole      = quad.IRI("kernel:role")
	typeTask      = quad.IRI("kernel:Task")
	typeCondition = quad.IRI("kernel:Condition")
)

// Provider wraps a Cayley graph store holding one or more workflow
// specifications, each identified by a caller-supplied name.
type Provider struct {
	store *cayley.Handle
	name  string
}

// Open initializes or opens a BoltDB-backed Cayley store at dbPath and
// returns a Provider scoped to the workflow named name (the name
// prefixes every IRI so multiple workflows can share one store).
func Open(dbPath, name string) (*Provider, error) {
	if err := graph.InitQuadStore("bolt", dbPath, nil); err != nil && err != graph.ErrDatabaseExists {
		return nil, fmt.Errorf("graphcollab: init quad store: %w", err)
	}
	store, err := cayley.NewGraph("bolt", dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("graphcollab: open quad store: %w", err)
	}
	return &Provider{store: store, name: name}, nil
}

func (p *Provider) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

func (p *Provider) taskIRI(id string) quad.IRI      { return quad.IRI(p.name + ":task:" + id) }
func (p *Provider) condIRI(id string) quad.IRI      { return quad.IRI(p.name + ":cond:" + id) }

// ImportSpec writes spec's tasks, conditions, and flows as quads,
// replacing anything previously stored under this Provider's name.
func (p *Provider) ImportSpec(spec snapshot.Spec) error {
	var quads []quad.Quad
	for _, t := range spec.Tasks {
		iri := p.taskIRI(t.ID)
		quads = append(quads,
			quad.Make(iri, predType, typeTask, nil),
			quad.Make(iri, predSplit, quad.String(t.Split), nil),
			quad.Make(iri, predJoin, quad.String(t.Join), nil),
			quad.Make(iri, predPattern, quad.Int(t.PatternID), nil),
		)
	}
	for _, c := range spec.Conditions {
		iri := p.condIRI(c.ID)
		quads = append(quads,
			quad.Make(iri, predType, typeCondition, nil),
			quad.Make(iri, predRole, quad.String(c.Role), nil),
		)
	}
	for _, f := range spec.Flows {
		quads = append(quads, quad.Make(p.elementIRI(f.Source), predPrecedes, p.elementIRI(f.Target), nil))
	}
	return p.store.AddQuadSet(quads)
}

// elementIRI resolves an id to whichever IRI form (task or condition)
// is already recorded for it; flows reference both kinds
// interchangeably by plain string id, so this tries task first.
func (p *Provider) elementIRI(id string) quad.IRI {
	ctx := context.Background()
	taskIRI := p.taskIRI(id)
	has := cayley.StartPath(p.store, taskIRI).Has(predType, typeTask)
	found := false
	has.Iterate(ctx).EachValue(nil, func(quad.Value) { found = true })
	if found {
		return taskIRI
	}
	return p.condIRI(id)
}

// ProvideSpec implements collab.SpecificationProvider: it walks the
// quad store back into a snapshot.Spec. It is the read-path mirror of
// ImportSpec, used when an external graph is the system of record for
// a workflow definition rather than an in-process parser.
func (p *Provider) ProvideSpec(ctx context.Context) (snapshot.Spec, error) {
	var spec snapshot.Spec

	taskPath := cayley.StartPath(p.store).Has(predType, typeTask)
	err := taskPath.Iterate(ctx).EachValue(nil, func(v quad.Value) {
		id := strings.TrimPrefix(v.String(), p.name+":task:")
		t := snapshot.Task{ID: id}
		p.fillString(ctx, v, predSplit, func(s string) { t.Split = snapshot.SplitJoin(s) })
		p.fillString(ctx, v, predJoin, func(s string) { t.Join = snapshot.SplitJoin(s) })
		p.fillInt(ctx, v, predPattern, func(n int) { t.PatternID = n })
		spec.Tasks = append(spec.Tasks, t)
	})
	if err != nil {
		return spec, fmt.Errorf("graphcollab: iterate tasks: %w", err)
	}

	condPath := cayley.StartPath(p.store).Has(predType, typeCondition)
	err = condPath.Iterate(ctx).EachValue(nil, func(v quad.Value) {
		id := strings.TrimPrefix(v.String(), p.name+":cond:")
		c := snapshot.Condition{ID: id}
		p.fillString(ctx, v, predRole, func(s string) { c.Role = snapshot.ConditionRole(s) })
		spec.Conditions = append(spec.Conditions, c)
	})
	if err != nil {
		return spec, fmt.Errorf("graphcollab: iterate conditions: %w", err)
	}

	return spec, nil
}

func (p *Provider) fillString(ctx context.Context, from quad.Value, pred quad.IRI, set func(string)) {
	cayley.StartPath(p.store, from).Out(pred).Iterate(ctx).EachValue(nil, func(v quad.Value) {
		if s, ok := v.(quad.String); ok {
			set(string(s))
		}
	})
}

func (p *Provider) fillInt(ctx context.Context, from quad.Value, pred quad.IRI, set func(int)) {
	cayley.StartPath(p.store, from).Out(pred).Iterate(ctx).EachValue(nil, func(v quad.Value) {
		if n, ok := v.(quad.Int); ok {
			set(int(n))
		}
	})
}
