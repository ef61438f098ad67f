// Package strix is a reconnaissance orchestration engine. Given a target
// (domain, IP, or URL) it drives a fleet of external command-line tools,
// parses their streamed output into a typed asset/finding graph, scores each
// discovery, and chains follow-up tasks through a declarative rules engine —
// all under a bounded-concurrency scheduler with pause/resume/stop control,
// an in-process event bus, and relational session persistence.
//
// The root package holds the domain model and the engines. Concrete tool
// adapters live in adapters/, persistence backends in store/, report
// generation in reports/, and OTEL observability in observer/.
package strix
