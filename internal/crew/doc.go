// Package crew runs the content pipeline: a fixed, ordered plan of stages
// (trend scan, web research, outline, script, edit pass), each of which is a
// single LLM call.
//
// # Definitions
//
// Agents and tasks come from a user-supplied YAML file:
//
//	agents:
//	  researcher:
//	    role: "Web researcher"
//	    goal: "Find sources about {{.topic}}"
//	    backstory: "..."
//	    tools: [search]
//	tasks:
//	  web_research:
//	    agent: researcher
//	    description: "Research {{.topic}} for {{index .channels 0}}"
//	    expected_output: "Markdown with a fenced JSON block of sources"
//	    output_file: "outputs/{{.run_id}}/research.md"
//	    context: [trend_scan]
//
// Text fields are text/template strings rendered against the run inputs
// (topic, topics, channels, run_id). A template that fails to render is used
// as written.
//
// # Tools
//
// An agent listing the "search" tool gets web search results for the topic
// appended to its prompt; "youtube" adds recent videos when a YouTube key is
// configured.
//
// # Context
//
// Each task's context names earlier tasks. Their outputs come from the
// current run or, when a stage runs alone, from the earlier task's output
// file. Every context block is cut to MaxContextChars.
package crew
