// Package scraper defines the domain types and component contracts for the
// career crawling pipeline: targets, candidate postings, persisted postings,
// the preference filter, and the interfaces wired together by the pipeline
// orchestrator.
package scraper
