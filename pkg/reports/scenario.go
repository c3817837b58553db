package reports

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/glottolab/lateral/pkg/engine"
	"github.com/glottolab/lateral/pkg/tree"
)

// ScenarioTSV renders the full gain-loss scenarios of a live result as TSV:
// one line per character and tied scenario, events written as "node:gain"
// or "node:loss" pairs. Scenario sets are not persisted, so this report is
// produced at run time, not from the store.
func ScenarioTSV(t *tree.Tree, res *engine.Result) io.Reader {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "character\tscenario\tevents\torigins")

	for _, cr := range res.Characters {
		for i, s := range cr.Scenarios {
			var events []string
			for id, e := range s.Events {
				if e == engine.EventNone {
					continue
				}
				events = append(events, t.Name(id)+":"+e.String())
			}
			fmt.Fprintf(buf, "%s\t%d\t%s\t%d\n", cr.ID, i+1, strings.Join(events, ","), len(s.Origins()))
		}
	}
	return buf
}
