package agent

// Options selects the optional parts of the route table.
type Options struct {
	Diagnostics bool
	Runtime     RuntimeInfo
}

// Routes builds the agent's route table. The echo route is always last so
// every more specific message trigger is tried first.
func Routes(opts Options) []Route {
	routes := []Route{WelcomeRoute(), HelpRoute()}
	routes = append(routes, LifecycleRoutes()...)
	if opts.Diagnostics {
		routes = append(routes, DiagnosticRoutes(opts.Runtime)...)
	}
	return append(routes, EchoRoute())
}
