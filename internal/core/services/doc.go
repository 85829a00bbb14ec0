// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the ingestion pipeline,
// hybrid retrieval, context assembly and the tutoring assistant.
package services
