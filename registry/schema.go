package registry

import (
	"encoding/json"

	"github.com/asaskevich/govalidator"
)

// rawEntry is the on-disk shape of one configs.json value, tolerant of
// the four accepted action-schema variants.
type rawEntry struct {
	Path        string              `json:"path"`
	Service     string              `json:"service"`
	Category    string              `json:"category"`
	User        string              `json:"user,omitempty"`
	Group       string              `json:"group,omitempty"`
	Mode        string              `json:"mode,omitempty"`
	ApplyMeta   *bool               `json:"apply_meta,omitempty"`
	Status      []string            `json:"status,omitempty"`
	Actions     map[string][]string `json:"actions,omitempty"`
	Commands    json.RawMessage     `json:"commands,omitempty"`
	CommandArgs map[string][]string `json:"command_args,omitempty"`
}

// deriveActions applies the four accepted schema shapes in precedence
// order: (a) actions map, (b) commands map, (c) command_args map,
// limited to the tokens a commands list names when one is given (the
// result is a map, so the list's order is not kept), (d) commands list
// containing the literal "run".
func deriveActions(raw rawEntry) map[string][]string {
	if len(raw.Actions) > 0 {
		return cloneActionMap(raw.Actions)
	}

	if len(raw.Commands) > 0 {
		var asMap map[string][]string
		if err := json.Unmarshal(raw.Commands, &asMap); err == nil && len(asMap) > 0 {
			return cloneActionMap(asMap)
		}
	}

	if len(raw.CommandArgs) > 0 {
		if order, ok := commandsAsList(raw.Commands); ok && len(order) > 0 {
			ordered := make(map[string][]string, len(order))
			for _, tok := range order {
				if args, present := raw.CommandArgs[tok]; present {
					ordered[tok] = args
				}
			}
			if len(ordered) > 0 {
				return ordered
			}
		}
		return cloneActionMap(raw.CommandArgs)
	}

	if list, ok := commandsAsList(raw.Commands); ok {
		for _, tok := range list {
			if tok == "run" {
				return map[string][]string{"run": {}}
			}
		}
	}

	return map[string][]string{}
}

func commandsAsList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

func cloneActionMap(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		args := make([]string, len(v))
		copy(args, v)
		out[k] = args
	}
	return out
}

// argTokenPattern is the syntactic whitelist declared extra arguments
// must satisfy.
const argTokenPattern = `^[A-Za-z0-9._:+@/=\-,]+$`

// ValidArgToken reports whether tok is a syntactically allowed extra
// argument token.
func ValidArgToken(tok string) bool {
	return govalidator.Matches(tok, argTokenPattern)
}
