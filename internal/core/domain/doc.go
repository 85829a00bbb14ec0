// Package domain contains the core business entities and rules.
// This package has no external dependencies and defines the ubiquitous language:
// documents, pages, hierarchy nodes, chunks, retrieval results and sessions.
package domain
