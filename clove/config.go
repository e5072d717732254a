package clove

// Options configures an Env at construction. Zero-value fields mean
// the corresponding collaborator is absent: evaluation that needs it
// reports a configuration error rather than guessing.
type Options struct {
	// Interop answers class resolution and method invocation for
	// host-native values.
	Interop InteropResolver

	// Records resolves interpreter-level record and protocol names.
	Records RecordResolver

	// Loader handles require/use/refer forms.
	Loader ModuleLoader

	// Closures builds callable closures from fn nodes.
	Closures ClosureBuilder

	// Classes is the interop allowlist. Nil denies all native
	// method calls.
	Classes *ClassAllowlist

	// PublicClass maps a receiver to a public ancestor class when
	// its concrete class is not allowlisted.
	PublicClass PublicClassFn

	// StartNamespace is the initial current namespace. Empty means
	// DefaultNamespace.
	StartNamespace string
}

// NewEnv makes a bare Env: default namespace, empty global scope, no
// collaborators wired.
func NewEnv() *Env {
	return NewEnvWithOptions(&Options{})
}

// NewEnvWithOptions makes an Env wired to the given collaborators.
func NewEnvWithOptions(opts *Options) *Env {
	if opts == nil {
		opts = &Options{}
	}
	start := opts.StartNamespace
	if start == "" {
		start = DefaultNamespace
	}

	env := &Env{
		symtable:    make(map[string]int),
		revsymtable: make(map[int]string),
		nextsymbol:  1,
		interop:     opts.Interop,
		records:     opts.Records,
		loader:      opts.Loader,
		closures:    opts.Closures,
		classes:     opts.Classes,
		publicClass: opts.PublicClass,
	}

	st := &envState{
		Current: start,
		Namespaces: map[string]*Namespace{
			start: newNamespace(start),
		},
	}
	env.state.Store(st)

	env.globalScope = env.NewNamedScope("global")
	env.globalScope.IsGlobal = true
	return env
}
