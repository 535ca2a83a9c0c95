// Package health reports whether a client can currently serve calls.
//
// A Checker inspects one concern, such as whether a bearer token is held
// or how much daily quota is left, and returns a Result. An Aggregator
// runs a set of checkers under one deadline and folds their results into
// a Report whose status is the worst of its parts.
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
//	agg.Register(mot.CredentialCheck())
//	agg.Register(mot.BudgetCheck(0.05))
//	http.Handle("/health", health.Handler(agg))
package health
