// Package oteladapters provides OpenTelemetry implementations of the cqrs observability interfaces.
//
// Pass them to cqrs.NewFramework, postgresstore.NewEventStore or cqrstest via the With... options:
//
//	framework, err := cqrs.NewFramework[BookCopy, Command](store, services, queries, reactors,
//		cqrs.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("library"))),
//		cqrs.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("library"))),
//		cqrs.WithContextualLogger(oteladapters.NewSlogBridgeLogger("library")),
//	)
package oteladapters
