// Package api defines the public data model of the orchestration engine:
// workers, workflow graphs, and per-execution run contexts
//
// Routing between steps is purely declarative. Identical workflows, goals,
// and worker outputs always produce identical control-flow traces even
// though the workers themselves are unpredictable
package api
