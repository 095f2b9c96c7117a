// Package thimble is a reflection-driven dependency injection environment for
// Go 1.25+.
//
// Implementations are registered as candidates. A request names a type,
// usually an interface, plus optional qualifiers; the environment picks the
// one registered implementation that satisfies it, builds it, injects its
// dependencies and keeps it for as long as its scope says.
//
// # Quick Start
//
//	type Engine interface{ Start() string }
//
//	type V8 struct{}
//
//	func (*V8) Start() string { return "vroom" }
//
//	type Car struct {
//	    Engine Engine `inject:""`
//	}
//
//	env := thimble.New()
//	thimble.Register[*V8](env, thimble.WithScope(thimble.Singleton))
//	thimble.Register[*Car](env)
//
//	car, err := thimble.Get[*Car](env)
//
// # Registration
//
// Struct pointers are allocated by reflection, constructors build anything
// else:
//
//	thimble.Register[*Service](env)                         // allocate and inject
//	thimble.RegisterFunc[*Server](env, NewServer)           // constructor, dependencies as parameters
//	thimble.Provide[Clock](env, func(ctx context.Context, r thimble.Resolver) (Clock, error) { ... })
//	thimble.ProvideValue(env, &Config{Port: 8080})          // existing value
//
// A registered type satisfies every request for a type it is assignable to.
// Two registrations satisfying the same request make it ambiguous, unless one
// of them is the requested type itself.
//
// # Injection
//
// Exported fields tagged `inject` are injected after allocation, base
// structs first; a tag value names the registration to inject. A `qualifier`
// tag narrows the candidates further:
//
//	type Garage struct {
//	    Primary Engine `inject:"primary"`
//	    Fast    Engine `qualifier:"@fast @region(zone=eu)"`
//	}
//
// Methods named Inject* receive their parameters resolved by type. Methods
// named PostConstruct* run after injection, base structs first, and
// PreDestroy* methods run in reverse when an instance is destroyed. Each may
// take a context.Context and return an error.
//
// # Qualifiers and Names
//
//	thimble.Register[*V8](env, thimble.WithName("primary"))
//	thimble.Register[*V6](env, thimble.WithQualifiers(thimble.NewQualifier("fast")))
//
//	e, err := thimble.GetNamed[Engine](env, "primary")
//	v, err := thimble.Find(ctx, env, "primary")
//
// # Scopes
//
// Prototype, the default for registered types, creates an instance per
// request. Singleton keeps one until Stop. Request keeps one per context
// prepared with WithRequestScope:
//
//	ctx := thimble.WithRequestScope(r.Context())
//	defer thimble.ReleaseRequestScope(ctx)
//
// # Optional and Lazy
//
// Optional[T] is empty when nothing implements T. Lazy[T] resolves T when
// its Get is called:
//
//	type Handler struct {
//	    Cache   thimble.Optional[*Cache]   `inject:""`
//	    Mailer  thimble.Lazy[Mailer]       `inject:""`
//	}
//
// # Bindings and Decorators
//
//	thimble.Bind[Store, *PostgresStore](env)
//	thimble.Decorate(env, func(ctx context.Context, r thimble.Resolver, s *PostgresStore) (*PostgresStore, error) {
//	    return s.WithTimeout(time.Second), nil
//	})
//
// # Extending the Engine
//
// Resolvers, scope strategies, injection point builders, factory builders
// and provider decorators plug into the same chains the built-in ones use:
//
//	env.AddScopeStrategy(thimble.Scope("tenant"), tenantStrategy{})
//	env.AddInjectionPointBuilder(settingsBuilder{"region": "eu-west-1"})
//	env.AddResolver(buildInfoResolver{})
//
// # Modules
//
//	var Storage = thimble.NewModule("storage")
//	thimble.ModuleRegister[*PostgresStore](Storage, thimble.WithScope(thimble.Singleton))
//
//	env.Apply(Storage)
//
// # Lifecycle
//
//	env.Start(ctx)  // extensions start, eager registrations are realized
//	env.Stop(ctx)   // extensions stop, instances are destroyed dependents first
//	env.Run(ctx)    // Start + wait for signal + Stop
//
// # Health Checks
//
// Realized instances implementing HealthChecker or ReadinessChecker are
// checked by Live, Ready and Health. Nothing is created to be checked.
//
// # Metrics Observers
//
//	env := thimble.New(
//	    thimble.WithResolveObserver(func(key string, d time.Duration, err error) {
//	        metrics.RecordResolve(key, d, err)
//	    }),
//	)
package thimble
