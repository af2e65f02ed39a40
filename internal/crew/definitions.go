package crew

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Tool names an agent may list.
const (
	ToolSearch  = "search"
	ToolYouTube = "youtube"
)

// Agent is a persona that a task runs as.
type Agent struct {
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal"`
	Backstory string   `yaml:"backstory"`
	Tools     []string `yaml:"tools"`
}

// HasTool reports whether the agent lists tool.
func (a Agent) HasTool(tool string) bool {
	for _, t := range a.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// Task is one unit of work in the plan.
type Task struct {
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	OutputFile     string   `yaml:"output_file"`
	Agent          string   `yaml:"agent"`
	Context        []string `yaml:"context"`
}

// Definitions holds every agent and task by name.
type Definitions struct {
	Agents map[string]Agent `yaml:"agents"`
	Tasks  map[string]Task  `yaml:"tasks"`
}

// Load reads definitions from a YAML file.
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading crew config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML definitions.
func Parse(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing crew config: %w", err)
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

// Validate checks that every task names a known agent and known context
// tasks.
func (d *Definitions) Validate() error {
	names := make([]string, 0, len(d.Tasks))
	for name := range d.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		task := d.Tasks[name]
		if task.Agent == "" {
			return fmt.Errorf("task %q: agent is required", name)
		}
		if _, ok := d.Agents[task.Agent]; !ok {
			return fmt.Errorf("task %q: unknown agent %q", name, task.Agent)
		}
		if task.Description == "" {
			return fmt.Errorf("task %q: description is required", name)
		}
		for _, dep := range task.Context {
			if _, ok := d.Tasks[dep]; !ok {
				return fmt.Errorf("task %q: unknown context task %q", name, dep)
			}
		}
	}
	return nil
}
