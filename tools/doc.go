// Package tools defines the Tool interface for LLM agents, including registration and parameter schemas. Tools enable agents to interact with the local system in a structured, extensible way.
package tools
