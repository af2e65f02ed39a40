package crew

// Task names used by the stage plans.
const (
	TaskTrendScan   = "trend_scan"
	TaskWebResearch = "web_research"
	TaskOutline     = "outline"
	TaskScript      = "script"
	TaskEditPass    = "edit_pass"
)

// StageAll runs every task.
const StageAll = "all"

var stagePlans = map[string][]string{
	StageAll:   {TaskTrendScan, TaskWebResearch, TaskOutline, TaskScript, TaskEditPass},
	"research": {TaskTrendScan, TaskWebResearch},
	"outline":  {TaskOutline},
	"script":   {TaskScript},
	"edit":     {TaskEditPass},
	"assets":   {},
}

// Stages lists the accepted stage names.
func Stages() []string {
	return []string{StageAll, "research", "outline", "script", "edit", "assets"}
}

// Plan returns the ordered task names for stage. Unknown stages run
// everything.
func Plan(stage string) []string {
	plan, ok := stagePlans[stage]
	if !ok {
		plan = stagePlans[StageAll]
	}
	out := make([]string, len(plan))
	copy(out, plan)
	return out
}

// IncludesResearch reports whether stage runs web research.
func IncludesResearch(stage string) bool {
	for _, name := range Plan(stage) {
		if name == TaskWebResearch {
			return true
		}
	}
	return false
}
