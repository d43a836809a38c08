package diagnostics

import (
	"fmt"
	"os"
	"strings"

	"github.com/kraklabs/cmx/config"
	"github.com/kraklabs/cmx/registry"
)

// DefaultLogLines is how many trailing log lines a report includes
// when the caller does not override it.
const DefaultLogLines = 200

// GenerateReport renders a plain-text bundle: the redacted global
// configuration, a summary of every registered entry (name, path,
// service, declared action tokens — never file contents), and the
// trailing lines of the configured log file.
func GenerateReport(c *config.Configuration, reg *registry.Registry, includeLogs bool, logLines int) (string, error) {
	var b strings.Builder

	b.WriteString("--- configuration (redacted) ---\n")
	cfgYAML, err := config.DumpYAML(c.Redacted())
	if err != nil {
		return "", err
	}
	b.WriteString(cfgYAML)

	b.WriteString("\n--- registered entries ---\n")
	for _, e := range reg.List() {
		fmt.Fprintf(&b, "%s: path=%s service=%q category=%s actions=%v\n",
			e.Name, e.Path, e.Service, e.Category, e.SortedActionTokens())
	}

	if includeLogs && c.LogFile != "" {
		b.WriteString("\n--- log tail ---\n")
		tail, terr := tailFile(c.LogFile, logLines)
		if terr != nil {
			fmt.Fprintf(&b, "(could not read log file: %v)\n", terr)
		} else {
			b.WriteString(tail)
		}
	}

	return b.String(), nil
}

func tailFile(path string, lines int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.Join(all, "\n") + "\n", nil
}
