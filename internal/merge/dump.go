package merge

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/briefcase/internal/ids"
)

const invalidName = "<Invalid>"

// nameFunc resolves the display name of id in one repository.
type nameFunc func(ctx context.Context, id ids.EntityID) (string, bool)

// Dump renders every remap table, one section per table in the order
// Class, Entity, Resource, CodeSpec. Lines are sorted by source id. Names
// that no longer resolve render as <Invalid>. The output depends only on
// the tables and the two catalogs.
func (c *Context) Dump(ctx context.Context) string {
	var b strings.Builder
	sections := []struct {
		kind  string
		table remapTable
		name  func(Catalog) nameFunc
	}{
		{"Class", c.classes, className},
		{"Entity", c.entities, entityName},
		{"Resource", c.resources, resourceName},
		{"CodeSpec", c.codeSpecs, codeSpecName},
	}
	for i, s := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		dumpTable(ctx, &b, s.kind, s.table, s.name(c.src), s.name(c.dst))
	}
	return b.String()
}

func dumpTable(ctx context.Context, b *strings.Builder, kind string, t remapTable, srcName, dstName nameFunc) {
	if len(t) == 0 {
		fmt.Fprintf(b, "No %s remappings\n", kind)
		return
	}
	fmt.Fprintf(b, "%s remappings:\n", kind)

	keys := make([]ids.EntityID, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, src := range keys {
		dst := t[src]
		fmt.Fprintf(b, "%s, %s --> %s, %s\n", src, displayName(ctx, srcName, src), dst, displayName(ctx, dstName, dst))
	}
}

func displayName(ctx context.Context, name nameFunc, id ids.EntityID) string {
	if n, ok := name(ctx, id); ok {
		return n
	}
	return invalidName
}

func className(cat Catalog) nameFunc {
	return func(ctx context.Context, id ids.EntityID) (string, bool) {
		cls, ok, err := cat.ClassByID(ctx, id)
		if err != nil || !ok {
			return "", false
		}
		return cls.QualifiedName(), true
	}
}

func entityName(cat Catalog) nameFunc {
	return func(ctx context.Context, id ids.EntityID) (string, bool) {
		e, ok, err := cat.EntityByID(ctx, id)
		if err != nil || !ok {
			return "", false
		}
		return e.DisplayName(), true
	}
}

func resourceName(cat Catalog) nameFunc {
	return func(ctx context.Context, id ids.EntityID) (string, bool) {
		res, ok, err := cat.ResourceByID(ctx, id)
		if err != nil || !ok {
			return "", false
		}
		return res.Kind + ":" + res.Name, true
	}
}

func codeSpecName(cat Catalog) nameFunc {
	return func(ctx context.Context, id ids.EntityID) (string, bool) {
		cs, ok, err := cat.CodeSpecByID(ctx, id)
		if err != nil || !ok {
			return "", false
		}
		return cs.Name, true
	}
}
