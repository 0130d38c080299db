package kdtab

import (
	"strings"
	"sync"

	"github.com/viant/sqlite-kdtree/index/kd"
)

const (
	indexKindKD    = "kd"
	indexKindBrute = "brute"
)

type indexOptions struct {
	kind  string
	build kd.BuildMode
	prune kd.PruneRule
}

func defaultIndexOptions() indexOptions {
	return indexOptions{kind: indexKindKD, build: kd.Balanced, prune: kd.PrunePlaneDistance}
}

func (o indexOptions) kdOptions() []kd.Option {
	return []kd.Option{kd.WithBuildMode(o.build), kd.WithPruneRule(o.prune)}
}

// parseIndexOptions reads key=value module arguments. Unknown keys and
// invalid values keep the defaults.
func parseIndexOptions(args []string) indexOptions {
	opts := defaultIndexOptions()
	for _, raw := range args {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.Trim(strings.TrimSpace(parts[1]), `'"`)
		switch key {
		case "index":
			switch strings.ToLower(val) {
			case indexKindKD, "kdtree":
				opts.kind = indexKindKD
			case indexKindBrute, "bruteforce":
				opts.kind = indexKindBrute
			}
		case "build":
			if mode, err := kd.ParseBuildMode(val); err == nil {
				opts.build = mode
			}
		case "prune":
			if rule, err := kd.ParsePruneRule(val); err == nil {
				opts.prune = rule
			}
		}
	}
	return opts
}

// Options registered per virtual table name so Rebuild can honor them.
var tableOptions = struct {
	mu     sync.RWMutex
	byName map[string]indexOptions
}{byName: make(map[string]indexOptions)}

func rememberOptions(tableName string, opts indexOptions) {
	tableOptions.mu.Lock()
	tableOptions.byName[tableName] = opts
	tableOptions.mu.Unlock()
}

func optionsFor(tableName string) indexOptions {
	tableOptions.mu.RLock()
	defer tableOptions.mu.RUnlock()
	if opts, ok := tableOptions.byName[tableName]; ok {
		return opts
	}
	return defaultIndexOptions()
}
