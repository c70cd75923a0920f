package devicesim

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	tagview "tagview/engine/core"
)

//go:embed default.yaml
var defaultModel []byte

// DefaultModel returns the built-in demo controller: a heater with every
// widget kind and a door with a value-only data group.
func DefaultModel() *tagview.Snapshot {
	var s tagview.Snapshot
	if err := yaml.Unmarshal(defaultModel, &s); err != nil {
		panic(fmt.Sprintf("devicesim: invalid built-in model: %v", err))
	}
	return &s
}
