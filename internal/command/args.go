package command

import (
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/pkg/core"
)

// placeArgs are the arguments of commands that create a node.
type placeArgs struct {
	Name string  `mapstructure:"name"`
	X    float64 `mapstructure:"x"`
	Y    float64 `mapstructure:"y"`
}

func (a placeArgs) validate() error {
	if a.Name == "" {
		return core.Errorf(core.KindMalformedArgs, "name must not be empty")
	}
	if !(graph.Position{X: a.X, Y: a.Y}).Valid() {
		return core.Errorf(core.KindMalformedArgs, "position (%v, %v) is not finite", a.X, a.Y)
	}
	return nil
}

type fieldArgs struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

type moveArgs struct {
	ID string  `mapstructure:"id"`
	X  float64 `mapstructure:"x"`
	Y  float64 `mapstructure:"y"`
}

// decodeArgs decodes args into out. Every field of out is required, and
// null values count as missing.
func decodeArgs(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}

	var nulls []string
	for k, v := range args {
		if v == nil {
			nulls = append(nulls, k)
		}
	}
	if len(nulls) > 0 {
		sort.Strings(nulls)
		return core.Errorf(core.KindMalformedArgs, "null argument(s): %v", nulls)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnset: true,
		Result:     out,
	})
	if err != nil {
		return core.Wrap(core.KindMalformedArgs, err, "build args decoder")
	}
	if err := dec.Decode(args); err != nil {
		return core.Wrap(core.KindMalformedArgs, err, "decode args")
	}
	return nil
}
