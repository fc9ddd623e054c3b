package rule

// ActionKind identifies what a rule does when selected.
type ActionKind string

// Action kinds.
const (
	ActionURL         ActionKind = "url"
	ActionPath        ActionKind = "path"
	ActionScript      ActionKind = "script"
	ActionAITranslate ActionKind = "ai_translate"
	ActionAISummarize ActionKind = "ai_summarize"
	ActionAIProcess   ActionKind = "ai_process"
	ActionLocalFormat ActionKind = "local_format"
	ActionSciHub      ActionKind = "doi_scihub"
)

// PlaceholderToken is the template token replaced with the effective
// captured text.
const PlaceholderToken = "${0}"

// Action is the kind-specific half of a rule. Each kind carries only the
// fields it needs; the dispatcher type-switches on the concrete type.
type Action interface {
	Kind() ActionKind
}

// URLAction opens a templated URL via the OS shell.
type URLAction struct {
	// Template is the URL template. PlaceholderToken is substituted with
	// the percent-encoded effective text; a template that is exactly the
	// token uses the effective text verbatim.
	Template string
}

// Kind returns ActionURL.
func (URLAction) Kind() ActionKind { return ActionURL }

// PathAction opens the captured text as a filesystem path.
type PathAction struct{}

// Kind returns ActionPath.
func (PathAction) Kind() ActionKind { return ActionPath }

// ScriptAction runs an external script with the captured text appended to
// its arguments.
type ScriptAction struct {
	// Path is the script path. Relative paths resolve against the
	// configured scripts directory.
	Path string

	// Arguments are passed before the captured text.
	Arguments []string
}

// Kind returns ActionScript.
func (ScriptAction) Kind() ActionKind { return ActionScript }

// AIOp selects which AI transform an AIAction invokes.
type AIOp string

// AI operations.
const (
	AITranslate AIOp = "translate"
	AISummarize AIOp = "summarize"
	AIProcess   AIOp = "process"
)

// AIAction sends the captured text to the AI service.
type AIAction struct {
	Op AIOp

	// Intent is the free-form instruction for AIProcess; unused otherwise.
	Intent string
}

// Kind maps the operation back to its action kind.
func (a AIAction) Kind() ActionKind {
	switch a.Op {
	case AITranslate:
		return ActionAITranslate
	case AISummarize:
		return ActionAISummarize
	default:
		return ActionAIProcess
	}
}

// LocalFormatAction cleans up the captured text without any network call.
type LocalFormatAction struct{}

// Kind returns ActionLocalFormat.
func (LocalFormatAction) Kind() ActionKind { return ActionLocalFormat }

// SciHubAction opens a DOI on the first reachable Sci-Hub mirror.
type SciHubAction struct{}

// Kind returns ActionSciHub.
func (SciHubAction) Kind() ActionKind { return ActionSciHub }

// UnknownAction preserves unrecognized action kinds so user rule files
// round-trip unchanged. Dispatching it is a no-op.
type UnknownAction struct {
	Type      string
	Template  string
	Path      string
	Arguments []string
}

// Kind returns the preserved type string.
func (u UnknownAction) Kind() ActionKind { return ActionKind(u.Type) }

// actionWire is the on-disk shape of an action: a flat object with
// optional fields, keyed by type.
type actionWire struct {
	Type       string   `json:"type"`
	Template   string   `json:"template"`
	ScriptPath string   `json:"script_path,omitempty"`
	Arguments  []string `json:"arguments,omitempty"`
}

// toAction converts the wire shape into the kind-specific type.
// The script path falls back to the template, as the original rule files
// allowed either field.
func (w actionWire) toAction() Action {
	switch ActionKind(w.Type) {
	case ActionURL:
		return URLAction{Template: w.Template}
	case ActionPath:
		return PathAction{}
	case ActionScript:
		path := w.ScriptPath
		if path == "" {
			path = w.Template
		}
		return ScriptAction{Path: path, Arguments: w.Arguments}
	case ActionAITranslate:
		return AIAction{Op: AITranslate}
	case ActionAISummarize:
		return AIAction{Op: AISummarize}
	case ActionAIProcess:
		return AIAction{Op: AIProcess, Intent: w.Template}
	case ActionLocalFormat:
		return LocalFormatAction{}
	case ActionSciHub:
		return SciHubAction{}
	default:
		return UnknownAction{
			Type:      w.Type,
			Template:  w.Template,
			Path:      w.ScriptPath,
			Arguments: w.Arguments,
		}
	}
}

// wireFromAction converts a kind-specific action back to the wire shape.
func wireFromAction(a Action) actionWire {
	switch v := a.(type) {
	case URLAction:
		return actionWire{Type: string(ActionURL), Template: v.Template}
	case PathAction:
		return actionWire{Type: string(ActionPath), Template: PlaceholderToken}
	case ScriptAction:
		return actionWire{Type: string(ActionScript), ScriptPath: v.Path, Arguments: v.Arguments}
	case AIAction:
		w := actionWire{Type: string(v.Kind())}
		if v.Op == AIProcess {
			w.Template = v.Intent
		}
		return w
	case LocalFormatAction:
		return actionWire{Type: string(ActionLocalFormat)}
	case SciHubAction:
		return actionWire{Type: string(ActionSciHub)}
	case UnknownAction:
		return actionWire{Type: v.Type, Template: v.Template, ScriptPath: v.Path, Arguments: v.Arguments}
	default:
		return actionWire{}
	}
}
