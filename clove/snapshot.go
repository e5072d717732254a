package clove

import (
	"fmt"
	"io"
	"os"
	"sort"

	greenmsgp "github.com/glycerine/greenpack/msgp"
	tinymsgp "github.com/tinylib/msgp/msgp"
)

// Snapshots persist the namespace store: for each namespace, the
// bound var roots that are plain data, their metadata, and the import
// table by class name. Functions, delays, and native values are
// skipped; SaveSnapshot reports them so callers can tell.
//
// The file form is greenpack; SnapshotToRaw gives the same bytes in
// memory as a SexpRaw.

func FileExists(name string) bool {
	fi, err := os.Stat(name)
	if err != nil {
		return false
	}
	if !fi.IsDir() {
		return true
	}
	return false
}

// SaveSnapshot writes env's namespace store to path. It refuses to
// overwrite an existing file.
func SaveSnapshot(env *Env, path string) (skipped []string, err error) {
	if FileExists(path) {
		return nil, fmt.Errorf("refusing to write to existing file '%s'", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error trying to create file '%s': '%v'", path, err)
	}
	defer f.Close()
	return WriteSnapshot(env, f)
}

// WriteSnapshot streams the snapshot as greenpack.
func WriteSnapshot(env *Env, f io.Writer) (skipped []string, err error) {
	snap, skipped := snapshotIntf(env)
	w := greenmsgp.NewWriter(f)
	err = w.WriteIntf(snap)
	if err != nil {
		return skipped, fmt.Errorf("greenpack encoding sees error '%v'", err)
	}
	err = w.Flush()
	return skipped, err
}

// LoadSnapshot reads a snapshot file back into env. Existing vars
// with the same names are re-rooted; everything else is untouched.
func LoadSnapshot(env *Env, path string) error {
	if !FileExists(path) {
		return fmt.Errorf("file '%s' does not exist", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReadSnapshot(env, f)
}

// ReadSnapshot restores from a greenpack stream.
func ReadSnapshot(env *Env, f io.Reader) error {
	r := greenmsgp.NewReader(f)
	iface, err := r.ReadIntf()
	if err != nil {
		return fmt.Errorf("greenpack decoding sees error '%v'", err)
	}
	return restoreIntf(env, iface)
}

// SnapshotToRaw produces the in-memory msgpack form.
func SnapshotToRaw(env *Env) (*SexpRaw, []string, error) {
	snap, skipped := snapshotIntf(env)
	by, err := tinymsgp.AppendIntf(nil, snap)
	if err != nil {
		return nil, skipped, err
	}
	return &SexpRaw{Val: by}, skipped, nil
}

// RawToSnapshot restores env from SnapshotToRaw bytes.
func RawToSnapshot(env *Env, raw *SexpRaw) error {
	iface, _, err := tinymsgp.ReadIntfBytes(raw.Val)
	if err != nil {
		return err
	}
	return restoreIntf(env, iface)
}

func snapshotIntf(env *Env) (map[string]interface{}, []string) {
	skipped := []string{}

	nss := make(map[string]interface{})
	metas := make(map[string]interface{})
	imports := make(map[string]interface{})

	for _, nsName := range env.NamespaceNames() {
		ns, ok := env.FindNamespace(nsName)
		if !ok {
			continue
		}

		vars := make(map[string]interface{})
		vmeta := make(map[string]interface{})
		for _, vname := range sortedVarNames(ns) {
			v := ns.Vars[vname]
			root := v.Get()
			if root == SexpUnbound {
				continue
			}
			if !snapshotSafe(root) {
				skipped = append(skipped, nsName+"/"+vname)
				continue
			}
			vars[vname] = SexpToGo(root, env, nil)
			if m := v.Meta(); m != nil {
				if snapshotSafe(m) {
					vmeta[vname] = SexpToGo(m, env, nil)
				} else {
					skipped = append(skipped, nsName+"/"+vname+" meta")
				}
			}
		}
		nss[nsName] = vars
		if len(vmeta) > 0 {
			metas[nsName] = vmeta
		}

		imp := make(map[string]interface{})
		for short, ref := range ns.Imports {
			if rt, isRT := ref.(*RegisteredType); isRT {
				imp[short] = rt.RegisteredName
			} else {
				skipped = append(skipped, nsName+" import "+short)
			}
		}
		if len(imp) > 0 {
			imports[nsName] = imp
		}
	}

	sort.Strings(skipped)
	return map[string]interface{}{
		"current":    env.CurrentNamespaceName(),
		"namespaces": nss,
		"metas":      metas,
		"imports":    imports,
	}, skipped
}

// snapshotSafe reports whether x survives the trip through plain Go
// data and back. Symbols and chars do not: they would come back as
// strings and ints, so vars rooted at them are skipped rather than
// silently retyped. Hash keys must be symbols for the same reason.
func snapshotSafe(x Sexp) bool {
	switch e := x.(type) {
	case *SexpInt, *SexpFloat, *SexpStr, *SexpBool, *SexpRaw:
		return true
	case *SexpSentinel:
		return e == SexpNull
	case *SexpArray:
		for _, ele := range e.Val {
			if !snapshotSafe(ele) {
				return false
			}
		}
		return true
	case *SexpHash:
		for _, arr := range e.Map {
			for _, pair := range arr {
				if _, isSym := pair.Head.(*SexpSymbol); !isSym {
					return false
				}
				if !snapshotSafe(pair.Tail) {
					return false
				}
			}
		}
		return true
	}
	return false
}

func sortedVarNames(ns *Namespace) []string {
	names := make([]string, 0, len(ns.Vars))
	for n := range ns.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func restoreIntf(env *Env, iface interface{}) error {
	snap, ok := mapStringIface(iface)
	if !ok {
		return fmt.Errorf("snapshot should decode to a map, got %T", iface)
	}

	if nss, ok := mapStringIface(snap["namespaces"]); ok {
		for nsName, varsIface := range nss {
			vars, ok := mapStringIface(varsIface)
			if !ok {
				return fmt.Errorf("namespace '%s' should hold a map, got %T", nsName, varsIface)
			}
			for vname, rootIface := range vars {
				root, err := GoToSexp(rootIface, env)
				if err != nil {
					return err
				}
				env.InternVar(nsName, vname).SetRoot(root)
			}
		}
	}

	if metas, ok := mapStringIface(snap["metas"]); ok {
		for nsName, vmIface := range metas {
			vmeta, ok := mapStringIface(vmIface)
			if !ok {
				continue
			}
			for vname, mIface := range vmeta {
				m, err := GoToSexp(mIface, env)
				if err != nil {
					return err
				}
				if h, isHash := m.(*SexpHash); isHash {
					env.InternVar(nsName, vname).MergeMeta(h)
				}
			}
		}
	}

	if imps, ok := mapStringIface(snap["imports"]); ok {
		for nsName, impIface := range imps {
			imp, ok := mapStringIface(impIface)
			if !ok {
				continue
			}
			for short, qIface := range imp {
				qualified, isStr := qIface.(string)
				if !isStr {
					continue
				}
				rt := GoStructRegistry.Lookup(qualified)
				if rt == nil {
					return fmt.Errorf("snapshot import '%s' names unregistered class '%s'", short, qualified)
				}
				env.AddImport(nsName, short, rt)
			}
		}
	}

	if cur, ok := snap["current"].(string); ok && cur != "" {
		env.SetCurrentNamespace(cur)
	}
	return nil
}

// mapStringIface tolerates both map key decodings the msgpack
// readers produce.
func mapStringIface(x interface{}) (map[string]interface{}, bool) {
	switch m := x.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	}
	return nil, false
}
